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

// Package lingstore provides persistence for multilingual entities.
//
// A Client is bound to exactly one backend for its whole lifetime.
// Callers needing a different backend construct another Client;
// there is no process-wide active backend to swap.
package lingstore

import (
	"context"
	"errors"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/entities"
)

// ErrNotFound is returned by Get when no entity matches the identifier
// (and language, if given).
//
// It is distinct from an empty search result, which is a success with
// zero elements.
var ErrNotFound = errors.New("lingstore: entity not found")

// Client exposes the persistence operations of one backend.
type Client struct {
	b backends.Backend
}

// NewClient creates a Client bound to the given backend.
//
// The caller remains responsible for closing the backend.
func NewClient(b backends.Backend) *Client {
	if b == nil {
		panic("b must not be nil")
	}

	return &Client{b: b}
}

// Get fetches one entity by identifier.
//
// A non-empty language also loads the entity's translatable attributes
// for that locale. Get returns ErrNotFound when no row matches.
func (c *Client) Get(ctx context.Context, desc *entities.Descriptor, id int64, language string) (*entities.Entity, error) {
	r, err := c.b.Resource(desc)
	if err != nil {
		return nil, err
	}

	res, err := r.Get(ctx, &backends.GetParams{ID: id, Language: language})
	if err != nil {
		if backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return res.Entity, nil
}

// Save persists the entity.
//
// Without an identifier, Save creates the entity and assigns the generated
// identifier onto it exactly once. With one, Save upserts the base row and,
// when the entity carries a language and its type declares translatable
// fields, the language row as a single atomic unit.
func (c *Client) Save(ctx context.Context, e *entities.Entity) (*entities.Entity, error) {
	r, err := c.b.Resource(e.Descriptor())
	if err != nil {
		return nil, err
	}

	res, err := r.Save(ctx, &backends.SaveParams{Entity: e})
	if err != nil {
		return nil, err
	}

	return res.Entity, nil
}

// Remove deletes the entity's base row and, transitively, all its language rows.
//
// The in-memory entity is not mutated.
func (c *Client) Remove(ctx context.Context, e *entities.Entity) error {
	r, err := c.b.Resource(e.Descriptor())
	if err != nil {
		return err
	}

	return r.Remove(ctx, &backends.RemoveParams{Entity: e})
}

// RemoveLanguage deletes exactly the entity's (id, language) row.
//
// A missing row is a success; unrelated rows are never touched.
func (c *Client) RemoveLanguage(ctx context.Context, e *entities.Entity) error {
	r, err := c.b.Resource(e.Descriptor())
	if err != nil {
		return err
	}

	return r.RemoveLanguage(ctx, &backends.RemoveLanguageParams{Entity: e})
}

// SearchParams represents the parameters of Client.SearchByField method.
type SearchParams struct {
	// Field is matched for equality against Value.
	// It must be one of the type's declared attribute names.
	Field string
	Value any

	// Language, if not empty, joins the language relation and filters by locale.
	Language string

	// OrderBy is applied only when OrderDirection is "asc" or "desc";
	// any other value discards OrderBy entirely.
	OrderBy        string
	OrderDirection string

	// LimitFrom defaults to 0. LimitTo defaults to, and is capped at, 1000.
	LimitFrom *int64
	LimitTo   *int64
}

// SearchByField returns entities matching a single-field equality filter.
//
// No match is a success with zero elements.
func (c *Client) SearchByField(ctx context.Context, desc *entities.Descriptor, params *SearchParams) ([]*entities.Entity, error) {
	r, err := c.b.Resource(desc)
	if err != nil {
		return nil, err
	}

	res, err := r.Search(ctx, &backends.SearchParams{
		Field:          params.Field,
		Value:          params.Value,
		Language:       params.Language,
		OrderBy:        params.OrderBy,
		OrderDirection: params.OrderDirection,
		LimitFrom:      params.LimitFrom,
		LimitTo:        params.LimitTo,
	})
	if err != nil {
		return nil, err
	}

	return res.Entities, nil
}

// LanguageVariant describes one alternate language of an entity.
type LanguageVariant struct {
	Language string

	// Name carries the value of the requested translatable attribute, if any.
	Name any
}

// GetOtherLanguages returns the locale tags of every persisted variant of the
// entity other than its own language.
//
// When nameField names one of the type's declared translatable attributes,
// each variant also carries that attribute's value; any other nameField is
// ignored. No other variants is a success with zero elements.
func (c *Client) GetOtherLanguages(ctx context.Context, e *entities.Entity, nameField string) ([]LanguageVariant, error) {
	r, err := c.b.Resource(e.Descriptor())
	if err != nil {
		return nil, err
	}

	res, err := r.ListOtherLanguages(ctx, &backends.OtherLanguagesParams{
		Entity:    e,
		NameField: nameField,
	})
	if err != nil {
		return nil, err
	}

	variants := make([]LanguageVariant, len(res.Variants))
	for i, v := range res.Variants {
		variants[i] = LanguageVariant{Language: v.Language, Name: v.Name}
	}

	return variants, nil
}
