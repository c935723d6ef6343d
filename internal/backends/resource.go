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

package backends

import (
	"context"

	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
	"github.com/lingstore/lingstore/internal/util/observability"
)

// MaxSearchLimit is the hard cap on the number of rows a single search returns.
//
// Callers requesting more get exactly this many rows.
const MaxSearchLimit = 1000

// ValidOrderDirection reports whether the given order direction is syntactically valid.
//
// Any other value, including the empty string, silently disables ordering.
func ValidOrderDirection(d string) bool {
	return d == "asc" || d == "desc"
}

// Resource is a generic interface for one entity type within a backend.
//
// Resource instances are stateless handles; the wrapped Backend owns the connections.
//
// See resourceContract and its methods for additional details.
type Resource interface {
	Get(context.Context, *GetParams) (*GetResult, error)
	Save(context.Context, *SaveParams) (*SaveResult, error)
	Remove(context.Context, *RemoveParams) error
	RemoveLanguage(context.Context, *RemoveLanguageParams) error
	Search(context.Context, *SearchParams) (*SearchResult, error)
	ListOtherLanguages(context.Context, *OtherLanguagesParams) (*OtherLanguagesResult, error)
}

// resourceContract implements Resource interface.
type resourceContract struct {
	r Resource
}

// ResourceContract wraps Resource and enforces its contract.
//
// All backend implementations should use that function when they create new Resource instances.
// The caller should not use that function.
//
// See resourceContract and its methods for additional details.
func ResourceContract(r Resource) Resource {
	return &resourceContract{
		r: r,
	}
}

// GetParams represents the parameters of Resource.Get method.
type GetParams struct {
	ID       int64
	Language string // empty for the base row only
}

// GetResult represents the results of Resource.Get method.
type GetResult struct {
	Entity *entities.Entity
}

// Get returns the single entity matching the identifier (and language, if given).
//
// Zero matching rows fail with ErrorCodeEntityNotFound, not with an empty success.
func (rc *resourceContract) Get(ctx context.Context, params *GetParams) (*GetResult, error) {
	defer observability.FuncCall(ctx)()

	res, err := rc.r.Get(ctx, params)
	checkError(err, ErrorCodeEntityNotFound, ErrorCodeBackend)

	return res, err
}

// SaveParams represents the parameters of Resource.Save method.
type SaveParams struct {
	Entity *entities.Entity
}

// SaveResult represents the results of Resource.Save method.
type SaveResult struct {
	Entity *entities.Entity
}

// Save persists the entity.
//
// If the entity has no identifier, a create is performed and the generated identifier
// is assigned to the entity before Save returns.
// If the entity carries a language and the type declares language fields,
// the base and language rows are written as a single atomic unit.
func (rc *resourceContract) Save(ctx context.Context, params *SaveParams) (*SaveResult, error) {
	defer observability.FuncCall(ctx)()

	if params.Entity == nil {
		panic("params.Entity must not be nil")
	}

	res, err := rc.r.Save(ctx, params)
	checkError(err, ErrorCodeBackend, ErrorCodeTransactionFailed)

	return res, err
}

// RemoveParams represents the parameters of Resource.Remove method.
type RemoveParams struct {
	Entity *entities.Entity
}

// Remove deletes the entity's base row.
//
// Dependent language rows are removed by the store's own referential rules.
// At most one base row is removed per call.
// The in-memory entity is not mutated.
func (rc *resourceContract) Remove(ctx context.Context, params *RemoveParams) error {
	defer observability.FuncCall(ctx)()

	if params.Entity == nil {
		panic("params.Entity must not be nil")
	}

	var err error

	if _, ok := params.Entity.ID(); !ok {
		err = lazyerrors.New("entity has no identifier")
	} else {
		err = rc.r.Remove(ctx, params)
	}

	checkError(err, ErrorCodeBackend)

	return err
}

// RemoveLanguageParams represents the parameters of Resource.RemoveLanguage method.
type RemoveLanguageParams struct {
	Entity *entities.Entity
}

// RemoveLanguage deletes exactly the (id, language) language row.
//
// Removing a language row that does not exist is a successful no-op.
func (rc *resourceContract) RemoveLanguage(ctx context.Context, params *RemoveLanguageParams) error {
	defer observability.FuncCall(ctx)()

	if params.Entity == nil {
		panic("params.Entity must not be nil")
	}

	var err error

	switch _, ok := params.Entity.ID(); {
	case !ok:
		err = lazyerrors.New("entity has no identifier")
	case params.Entity.Language() == "":
		err = lazyerrors.New("entity has no language")
	default:
		err = rc.r.RemoveLanguage(ctx, params)
	}

	checkError(err, ErrorCodeBackend)

	return err
}

// SearchParams represents the parameters of Resource.Search method.
type SearchParams struct {
	Field          string
	Value          any
	Language       string // empty to search base rows only
	OrderBy        string
	OrderDirection string // ordering is applied only for "asc" or "desc"
	LimitFrom      *int64 // default 0
	LimitTo        *int64 // default and maximum MaxSearchLimit
}

// SearchResult represents the results of Resource.Search method.
type SearchResult struct {
	Entities []*entities.Entity
}

// Search returns the ordered sequence of entities matching Field == Value.
//
// No matches is a success with zero elements.
func (rc *resourceContract) Search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	defer observability.FuncCall(ctx)()

	var res *SearchResult

	err := validateFieldName(params.Field)
	if err == nil && ValidOrderDirection(params.OrderDirection) && params.OrderBy != "" {
		err = validateFieldName(params.OrderBy)
	}

	if err == nil {
		res, err = rc.r.Search(ctx, params)
	}

	checkError(err, ErrorCodeFieldNameIsInvalid, ErrorCodeBackend)

	return res, err
}

// OtherLanguagesParams represents the parameters of Resource.ListOtherLanguages method.
type OtherLanguagesParams struct {
	Entity *entities.Entity

	// NameField optionally selects one declared translatable field to return per variant.
	// Names outside the declared translatable fields are ignored.
	NameField string
}

// LanguageVariant is one language variant of an entity.
type LanguageVariant struct {
	Language string
	Name     any // value of NameField, or nil
}

// OtherLanguagesResult represents the results of Resource.ListOtherLanguages method.
type OtherLanguagesResult struct {
	Variants []LanguageVariant
}

// ListOtherLanguages returns the language variants of the entity other than the entity's own language.
//
// No other variants is a success with zero elements, not an error.
func (rc *resourceContract) ListOtherLanguages(ctx context.Context, params *OtherLanguagesParams) (*OtherLanguagesResult, error) {
	defer observability.FuncCall(ctx)()

	if params.Entity == nil {
		panic("params.Entity must not be nil")
	}

	var res *OtherLanguagesResult
	var err error

	switch _, ok := params.Entity.ID(); {
	case !ok:
		err = lazyerrors.New("entity has no identifier")
	case params.NameField != "" && validateFieldName(params.NameField) != nil:
		err = validateFieldName(params.NameField)
	default:
		res, err = rc.r.ListOtherLanguages(ctx, params)
	}

	checkError(err, ErrorCodeFieldNameIsInvalid, ErrorCodeBackend)

	return res, err
}

// check interfaces
var (
	_ Resource = (*resourceContract)(nil)
)
