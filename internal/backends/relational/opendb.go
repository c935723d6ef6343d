// Copyright 2024 lingstore authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relational

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // register mysql driver
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/lingstore/lingstore/internal/util/fsql"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
)

// openDB opens a connection pool for the given URI and checks that it works.
//
// Name is used for logging and metrics; the write pool is capped at a single
// connection so that it owns at most one transaction at a time.
func openDB(uri, name string, write bool, l *zap.Logger) (*fsql.DB, dialect, error) {
	d, driver, err := dialectForURI(uri)
	if err != nil {
		return nil, 0, lazyerrors.Error(err)
	}

	dsn := uri

	switch d {
	case dialectMySQL:
		// go-sql-driver expects a DSN without the scheme
		dsn = strings.TrimPrefix(dsn, "mysql://")

	case dialectSQLite:
		dsn = strings.TrimPrefix(dsn, "sqlite:")
		dsn = withSQLitePragmas(dsn)

	case dialectPostgreSQL:
		// pgx accepts the URI as is
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, 0, lazyerrors.Error(err)
	}

	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if write {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, 0, lazyerrors.Error(err)
	}

	return fsql.WrapDB(sqlDB, name, l), d, nil
}

// withSQLitePragmas appends the pragmas every SQLite connection needs.
//
// Foreign keys are off by default in SQLite, and the language relation
// relies on ON DELETE CASCADE.
func withSQLitePragmas(dsn string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(10000)",
	}

	for _, p := range pragmas {
		if strings.Contains(dsn, p) {
			continue
		}

		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}

		dsn += sep + p
	}

	return dsn
}
