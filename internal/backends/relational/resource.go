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
	"errors"
	"fmt"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
)

// entityResource implements backends.Resource interface.
type entityResource struct {
	b    *backend
	desc *entities.Descriptor
}

// newResource creates a new Resource.
func newResource(b *backend, desc *entities.Descriptor) backends.Resource {
	return backends.ResourceContract(&entityResource{
		b:    b,
		desc: desc,
	})
}

// Get implements backends.Resource interface.
func (r *entityResource) Get(ctx context.Context, params *backends.GetParams) (*backends.GetResult, error) {
	d := r.b.d
	withLanguage := params.Language != "" && r.desc.HasLanguageFields()

	q := prepareSelectClause(d, r.desc, withLanguage)

	var args []any

	if withLanguage {
		q += fmt.Sprintf(
			" WHERE %s.%s = %s AND %s.%s = %s",
			baseAlias, d.quote(idColumn), d.placeholder(1),
			languageAlias, d.quote(languageColumn), d.placeholder(2),
		)
		args = []any{params.ID, params.Language}
	} else {
		q += fmt.Sprintf(" WHERE %s = %s", d.quote(idColumn), d.placeholder(1))
		args = []any{params.ID}
	}

	q += " LIMIT 1"

	row := r.b.rdb.QueryRowContext(ctx, q, args...)

	e, err := scanEntity(r.desc, withLanguage, row.Scan)

	switch {
	case err == nil:
		return &backends.GetResult{Entity: e}, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, backends.NewError(backends.ErrorCodeEntityNotFound, err)
	default:
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}
}

// Search implements backends.Resource interface.
func (r *entityResource) Search(ctx context.Context, params *backends.SearchParams) (*backends.SearchResult, error) {
	d := r.b.d
	withLanguage := params.Language != "" && r.desc.HasLanguageFields()

	q := prepareSelectClause(d, r.desc, withLanguage)

	// values are compared in their stored form, so the match is type-strict:
	// a numeric 7 never matches a stored "7"
	v, err := encodeValue(params.Value)
	if err != nil {
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	args := []any{v}
	q += fmt.Sprintf(" WHERE %s = %s", qualifyColumn(d, r.desc, params.Field, withLanguage), d.placeholder(1))

	if withLanguage {
		args = append(args, params.Language)
		q += fmt.Sprintf(" AND %s.%s = %s", languageAlias, d.quote(languageColumn), d.placeholder(2))
	}

	q += prepareOrderByClause(d, r.desc, params.OrderBy, params.OrderDirection, withLanguage)

	offset, limit := clampLimits(params.LimitFrom, params.LimitTo)
	q += fmt.Sprintf(" LIMIT %s OFFSET %s", d.placeholder(len(args)+1), d.placeholder(len(args)+2))
	args = append(args, limit, offset)

	rows, err := r.b.rdb.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}
	defer rows.Close() //nolint:errcheck // read-only query

	res := &backends.SearchResult{
		Entities: []*entities.Entity{},
	}

	for rows.Next() {
		var e *entities.Entity

		if e, err = scanEntity(r.desc, withLanguage, rows.Scan); err != nil {
			return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
		}

		res.Entities = append(res.Entities, e)
	}

	if err = rows.Err(); err != nil {
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	return res, nil
}

// Remove implements backends.Resource interface.
func (r *entityResource) Remove(ctx context.Context, params *backends.RemoveParams) error {
	id, _ := params.Entity.ID()

	if _, err := r.b.wdb.ExecContext(ctx, deleteBaseQuery(r.b.d, r.desc), id); err != nil {
		return backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	return nil
}

// RemoveLanguage implements backends.Resource interface.
func (r *entityResource) RemoveLanguage(ctx context.Context, params *backends.RemoveLanguageParams) error {
	id, _ := params.Entity.ID()
	q := deleteLanguageQuery(r.b.d, r.desc)

	// a missing row is a no-op success; only unrelated rows must stay untouched
	if _, err := r.b.wdb.ExecContext(ctx, q, id, params.Entity.Language()); err != nil {
		return backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	return nil
}

// ListOtherLanguages implements backends.Resource interface.
func (r *entityResource) ListOtherLanguages(ctx context.Context, params *backends.OtherLanguagesParams) (*backends.OtherLanguagesResult, error) {
	id, _ := params.Entity.ID()

	// a name field outside the declared translatable fields is ignored
	nameField := params.NameField
	if !r.desc.IsLanguageField(nameField) {
		nameField = ""
	}

	q := otherLanguagesQuery(r.b.d, r.desc, nameField)

	rows, err := r.b.rdb.QueryContext(ctx, q, id, params.Entity.Language())
	if err != nil {
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}
	defer rows.Close() //nolint:errcheck // read-only query

	res := &backends.OtherLanguagesResult{
		Variants: []backends.LanguageVariant{},
	}

	for rows.Next() {
		var v backends.LanguageVariant

		if nameField == "" {
			err = rows.Scan(&v.Language)
		} else {
			err = rows.Scan(&v.Language, &v.Name)
		}

		if err != nil {
			return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
		}

		if v.Name, err = decodeValue(v.Name); err != nil {
			return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
		}

		res.Variants = append(res.Variants, v)
	}

	if err = rows.Err(); err != nil {
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	return res, nil
}

// scanEntity reconstructs one entity from the current row.
//
// The scan callback must match the column order of prepareSelectClause.
func scanEntity(desc *entities.Descriptor, withLanguage bool, scan func(...any) error) (*entities.Entity, error) {
	fields := desc.Fields()
	languageFields := desc.LanguageFields()

	n := len(fields)
	if withLanguage {
		n += len(languageFields)
	}

	var id int64
	var language string
	vals := make([]any, n)

	dest := make([]any, 0, n+2)
	dest = append(dest, &id)

	for i := range fields {
		dest = append(dest, &vals[i])
	}

	if withLanguage {
		dest = append(dest, &language)

		for i := range languageFields {
			dest = append(dest, &vals[len(fields)+i])
		}
	}

	if err := scan(dest...); err != nil {
		return nil, err
	}

	data := make(map[string]any, n)

	for i := 0; i < n; i++ {
		v, err := decodeValue(vals[i])
		if err != nil {
			return nil, err
		}

		if i < len(fields) {
			data[fields[i]] = v
		} else {
			data[languageFields[i-len(fields)]] = v
		}
	}

	e := entities.FromData(desc, data)
	e.AssignID(id)

	if withLanguage {
		e.SetLanguage(language)
	}

	return e, nil
}

// check interfaces
var (
	_ backends.Resource = (*entityResource)(nil)
)
