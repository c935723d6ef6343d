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

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/util/fsql"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
)

// Save implements backends.Resource interface.
//
// When the entity carries a language and the type declares translatable fields,
// the base row and the language row are written inside one transaction:
// the base write strictly precedes the language write, and both precede commit.
// The first failing step rolls the transaction back; a transaction is never
// rolled back twice. Without a language, the save is a single non-transactional
// upsert of the base row.
//
// In both shapes, a generated identifier is assigned to the entity only after
// the write is durable.
func (r *entityResource) Save(ctx context.Context, params *backends.SaveParams) (*backends.SaveResult, error) {
	e := params.Entity

	var existingID *int64

	if id, ok := e.ID(); ok {
		existingID = &id
	}

	// values go through the stored-form encoding before any write,
	// so an unencodable value fails the save before it touches the store
	baseData, err := encodeValues(e.BaseData())
	if err != nil {
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	if e.Language() == "" || !r.desc.HasLanguageFields() {
		id, err := r.upsertBase(ctx, r.b.wdb, existingID, baseData)
		if err != nil {
			return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
		}

		if existingID == nil {
			e.AssignID(id)
		}

		return &backends.SaveResult{Entity: e}, nil
	}

	languageData, err := encodeValues(e.LanguageData())
	if err != nil {
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	var id int64
	var baseWritten bool

	err = r.b.wdb.InTransaction(ctx, func(tx *fsql.Tx) error {
		var err error

		if id, err = r.upsertBase(ctx, tx, existingID, baseData); err != nil {
			return lazyerrors.Error(err)
		}

		baseWritten = true

		q, args := upsertLanguageQuery(r.b.d, r.desc, id, e.Language(), languageData)

		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return lazyerrors.Error(err)
		}

		return nil
	})
	if err != nil {
		// the caller gets the original triggering error as the cause
		if baseWritten {
			return nil, backends.NewError(backends.ErrorCodeTransactionFailed, err)
		}

		return nil, backends.NewError(backends.ErrorCodeBackend, err)
	}

	if existingID == nil {
		e.AssignID(id)
	}

	return &backends.SaveResult{Entity: e}, nil
}

// execer is the subset of fsql.DB and fsql.Tx used by the save protocol.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// upsertBase writes the base row and returns its identifier.
//
// With an existing identifier, the row is inserted or updated in place.
// Without one, the row is inserted and the generated identifier is read
// from the insert result.
func (r *entityResource) upsertBase(ctx context.Context, db execer, existingID *int64, data map[string]any) (int64, error) {
	q, args := upsertBaseQuery(r.b.d, r.desc, data, existingID)

	if existingID != nil {
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return 0, lazyerrors.Error(err)
		}

		return *existingID, nil
	}

	if r.b.d.returningID() {
		var id int64

		if err := db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
			return 0, lazyerrors.Error(err)
		}

		return id, nil
	}

	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, lazyerrors.Error(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, lazyerrors.Error(err)
	}

	return id, nil
}
