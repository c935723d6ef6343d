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

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
)

// entityPayload is the wire representation of one entity.
type entityPayload struct {
	ID       int64          `json:"id"`
	Language string         `json:"language,omitempty"`
	Data     map[string]any `json:"data"`
}

// variantPayload is the wire representation of one language variant.
type variantPayload struct {
	Language string `json:"language"`
	Name     any    `json:"name,omitempty"`
}

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
	u := r.url(nil, strconv.FormatInt(params.ID, 10), params.Language)

	var p entityPayload

	if err := r.do(ctx, http.MethodGet, u, nil, &p, true); err != nil {
		return nil, err
	}

	return &backends.GetResult{Entity: r.entity(&p)}, nil
}

// Save implements backends.Resource interface.
func (r *entityResource) Save(ctx context.Context, params *backends.SaveParams) (*backends.SaveResult, error) {
	e := params.Entity

	data := e.BaseData()
	if e.Language() != "" {
		maps.Copy(data, e.LanguageData())
	}

	body := &entityPayload{
		Language: e.Language(),
		Data:     data,
	}

	if id, ok := e.ID(); ok {
		body.ID = id
		u := r.url(nil, strconv.FormatInt(id, 10), e.Language())

		if err := r.do(ctx, http.MethodPut, u, body, nil, false); err != nil {
			return nil, err
		}

		return &backends.SaveResult{Entity: e}, nil
	}

	var p entityPayload

	if err := r.do(ctx, http.MethodPost, r.url(nil), body, &p, false); err != nil {
		return nil, err
	}

	e.AssignID(p.ID)

	return &backends.SaveResult{Entity: e}, nil
}

// Remove implements backends.Resource interface.
func (r *entityResource) Remove(ctx context.Context, params *backends.RemoveParams) error {
	id, _ := params.Entity.ID()

	return r.do(ctx, http.MethodDelete, r.url(nil, strconv.FormatInt(id, 10)), nil, nil, false)
}

// RemoveLanguage implements backends.Resource interface.
func (r *entityResource) RemoveLanguage(ctx context.Context, params *backends.RemoveLanguageParams) error {
	id, _ := params.Entity.ID()
	u := r.url(nil, strconv.FormatInt(id, 10), params.Entity.Language())

	return r.do(ctx, http.MethodDelete, u, nil, nil, false)
}

// Search implements backends.Resource interface.
func (r *entityResource) Search(ctx context.Context, params *backends.SearchParams) (*backends.SearchResult, error) {
	// the search value travels JSON-encoded so its scalar type survives the wire
	v, err := json.Marshal(params.Value)
	if err != nil {
		return nil, backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	q := url.Values{}
	q.Set("searchField", params.Field)
	q.Set("searchValue", string(v))

	if params.Language != "" {
		q.Set("searchLanguage", params.Language)
	}

	if params.OrderBy != "" {
		q.Set("orderBy", params.OrderBy)
	}

	if params.OrderDirection != "" {
		q.Set("orderDirection", params.OrderDirection)
	}

	if params.LimitFrom != nil {
		q.Set("limitFrom", strconv.FormatInt(*params.LimitFrom, 10))
	}

	if params.LimitTo != nil {
		q.Set("limitTo", strconv.FormatInt(*params.LimitTo, 10))
	}

	var ps []entityPayload

	if err := r.do(ctx, http.MethodGet, r.url(q), nil, &ps, false); err != nil {
		return nil, err
	}

	res := &backends.SearchResult{
		Entities: make([]*entities.Entity, len(ps)),
	}

	for i := range ps {
		res.Entities[i] = r.entity(&ps[i])
	}

	return res, nil
}

// ListOtherLanguages implements backends.Resource interface.
func (r *entityResource) ListOtherLanguages(ctx context.Context, params *backends.OtherLanguagesParams) (*backends.OtherLanguagesResult, error) {
	id, _ := params.Entity.ID()

	var q url.Values

	if params.NameField != "" {
		q = url.Values{}
		q.Set("nameField", params.NameField)
	}

	u := r.url(q, strconv.FormatInt(id, 10), params.Entity.Language(), "others")

	var ps []variantPayload

	if err := r.do(ctx, http.MethodGet, u, nil, &ps, false); err != nil {
		return nil, err
	}

	res := &backends.OtherLanguagesResult{
		Variants: make([]backends.LanguageVariant, len(ps)),
	}

	for i, p := range ps {
		res.Variants[i] = backends.LanguageVariant{
			Language: p.Language,
			Name:     entities.NormalizeValue(p.Name),
		}
	}

	return res, nil
}

// url builds a request URL from the resource name and the given path segments.
//
// Empty segments are skipped, so an absent language simply shortens the path.
func (r *entityResource) url(query url.Values, segments ...string) string {
	parts := []string{r.b.base.String(), url.PathEscape(r.desc.Name())}

	for _, s := range segments {
		if s != "" {
			parts = append(parts, url.PathEscape(s))
		}
	}

	u := strings.Join(parts, "/")

	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return u
}

// do performs one request and decodes the response body into out, if given.
//
// A 404 response maps to ErrorCodeEntityNotFound when notFound is true;
// any other non-2xx response maps to ErrorCodeBackend.
func (r *entityResource) do(ctx context.Context, method, u string, in, out any, notFound bool) error {
	var body io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if r.b.auth != "" {
		req.Header.Set("Authorization", r.b.auth)
	}

	resp, err := r.b.c.Do(req)
	if err != nil {
		return backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}
	defer resp.Body.Close() //nolint:errcheck // a read-only response body

	switch {
	case resp.StatusCode == http.StatusNotFound && notFound:
		return backends.NewError(backends.ErrorCodeEntityNotFound, lazyerrors.Errorf("%s %s: %s", method, u, resp.Status))
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return backends.NewError(backends.ErrorCodeBackend, lazyerrors.Errorf("%s %s: %s", method, u, resp.Status))
	}

	if out == nil {
		return nil
	}

	// UseNumber keeps integer attribute values from degrading to float64;
	// entities.FromData normalizes the decoded json.Number values
	d := json.NewDecoder(resp.Body)
	d.UseNumber()

	if err = d.Decode(out); err != nil {
		return backends.NewError(backends.ErrorCodeBackend, lazyerrors.Error(err))
	}

	return nil
}

// entity reconstructs an entity from its wire representation.
func (r *entityResource) entity(p *entityPayload) *entities.Entity {
	e := entities.FromData(r.desc, p.Data)
	e.AssignID(p.ID)
	e.SetLanguage(p.Language)

	return e
}

// check interfaces
var (
	_ backends.Resource = (*entityResource)(nil)
)
