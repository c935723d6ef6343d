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
	"fmt"
	"strconv"
	"strings"

	"github.com/lingstore/lingstore/internal/util/lazyerrors"
)

// dialect captures the SQL differences between the supported engines.
type dialect int

// Supported dialects.
const (
	_ dialect = iota
	dialectMySQL
	dialectPostgreSQL
	dialectSQLite
)

// dialectForURI returns the dialect and driver name for the given connection URI.
func dialectForURI(uri string) (dialect, string, error) {
	switch {
	case strings.HasPrefix(uri, "mysql://"):
		return dialectMySQL, "mysql", nil
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return dialectPostgreSQL, "pgx", nil
	case strings.HasPrefix(uri, "file:"), strings.HasPrefix(uri, "sqlite:"):
		return dialectSQLite, "sqlite", nil
	default:
		return 0, "", lazyerrors.Errorf("unsupported connection URI %q", uri)
	}
}

// placeholder returns the 1-based n-th statement placeholder.
func (d dialect) placeholder(n int) string {
	if d == dialectPostgreSQL {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}

// quote quotes an identifier.
//
// Identifiers are validated before they get anywhere near a statement;
// quoting only guards against keyword collisions.
func (d dialect) quote(ident string) string {
	if d == dialectMySQL {
		return "`" + ident + "`"
	}

	return `"` + ident + `"`
}

// returningID reports whether the engine returns generated identifiers
// through a RETURNING clause rather than through [sql.Result.LastInsertId].
func (d dialect) returningID() bool {
	return d == dialectPostgreSQL
}

// idColumn returns the column definition of the generated identifier.
func (d dialect) idColumn() string {
	switch d {
	case dialectMySQL:
		return "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	case dialectPostgreSQL:
		return "BIGSERIAL PRIMARY KEY"
	case dialectSQLite:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		panic(fmt.Sprintf("unknown dialect %d", d))
	}
}

// refIDColumn returns the column type of an identifier referencing the base relation.
func (d dialect) refIDColumn() string {
	if d == dialectSQLite {
		return "INTEGER NOT NULL"
	}

	return "BIGINT NOT NULL"
}
