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

package server

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/AlekSi/pointer"
	"go.uber.org/zap"

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

// clientError marks an error caused by a malformed request.
type clientError struct {
	err error
}

// Error implements error interface.
func (e *clientError) Error() string { return e.err.Error() }

// wrap adapts op into an http.HandlerFunc with logging and metrics.
func (h *Handler) wrap(op string, f func(rw http.ResponseWriter, req *http.Request) error) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		res := req.PathValue("resource")

		err := f(rw, req)
		if err == nil {
			h.requests.WithLabelValues(res, op, "ok").Inc()

			return
		}

		status := statusFor(err)

		h.l.Warn(
			"Request failed",
			zap.String("resource", res), zap.String("operation", op),
			zap.Int("status", status), zap.Error(err),
		)
		h.requests.WithLabelValues(res, op, strconv.Itoa(status)).Inc()

		http.Error(rw, err.Error(), status)
	}
}

// statusFor maps an operation error to an HTTP status code.
func statusFor(err error) int {
	var ce *clientError
	if errors.As(err, &ce) {
		return http.StatusBadRequest
	}

	switch {
	case backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound):
		return http.StatusNotFound
	case backends.ErrorCodeIs(err, backends.ErrorCodeResourceNameIsInvalid),
		backends.ErrorCodeIs(err, backends.ErrorCodeFieldNameIsInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// resolve returns the descriptor and resource for the request's path.
func (h *Handler) resolve(req *http.Request) (*entities.Descriptor, backends.Resource, error) {
	name := req.PathValue("resource")

	desc := h.descs[name]
	if desc == nil {
		return nil, nil, backends.NewError(
			backends.ErrorCodeEntityNotFound,
			lazyerrors.Errorf("unknown resource %q", name),
		)
	}

	res, err := h.b.Resource(desc)
	if err != nil {
		return nil, nil, lazyerrors.Error(err)
	}

	return desc, res, nil
}

// readPayload decodes the request body.
//
// Attribute values decode with json.Decoder.UseNumber, so integers stay
// integers through entities.FromData.
func readPayload(req *http.Request, p *entityPayload) error {
	d := json.NewDecoder(req.Body)
	d.UseNumber()

	if err := d.Decode(p); err != nil {
		return &clientError{err: err}
	}

	return nil
}

// searchValue parses the searchValue query parameter.
//
// The value is its JSON encoding when it parses as one ("7", `"x"`, "true"),
// so scalar types survive the wire; anything else is taken as a plain string.
func searchValue(s string) any {
	d := json.NewDecoder(strings.NewReader(s))
	d.UseNumber()

	var v any
	if err := d.Decode(&v); err != nil {
		return s
	}

	return entities.NormalizeValue(v)
}

// pathID parses the identifier path segment.
func pathID(req *http.Request) (int64, error) {
	id, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
	if err != nil {
		return 0, &clientError{err: err}
	}

	return id, nil
}

// payload converts an entity to its wire representation.
func payload(e *entities.Entity) *entityPayload {
	id, _ := e.ID()

	data := e.BaseData()
	if e.Language() != "" {
		maps.Copy(data, e.LanguageData())
	}

	return &entityPayload{
		ID:       id,
		Language: e.Language(),
		Data:     data,
	}
}

// writeJSON writes v as the JSON response body.
func (h *Handler) writeJSON(rw http.ResponseWriter, status int, v any) error {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// handleCreate handles "POST /{resource}".
func (h *Handler) handleCreate(rw http.ResponseWriter, req *http.Request) error {
	desc, res, err := h.resolve(req)
	if err != nil {
		return err
	}

	var p entityPayload
	if err = readPayload(req, &p); err != nil {
		return err
	}

	e := entities.FromData(desc, p.Data)
	e.SetLanguage(p.Language)

	saved, err := res.Save(req.Context(), &backends.SaveParams{Entity: e})
	if err != nil {
		return err
	}

	return h.writeJSON(rw, http.StatusCreated, payload(saved.Entity))
}

// handleSave handles "PUT /{resource}/{id}" and "PUT /{resource}/{id}/{language}".
func (h *Handler) handleSave(rw http.ResponseWriter, req *http.Request) error {
	desc, res, err := h.resolve(req)
	if err != nil {
		return err
	}

	id, err := pathID(req)
	if err != nil {
		return err
	}

	var p entityPayload
	if err = readPayload(req, &p); err != nil {
		return err
	}

	e := entities.FromData(desc, p.Data)
	e.AssignID(id)
	e.SetLanguage(req.PathValue("language"))

	saved, err := res.Save(req.Context(), &backends.SaveParams{Entity: e})
	if err != nil {
		return err
	}

	return h.writeJSON(rw, http.StatusOK, payload(saved.Entity))
}

// handleGet handles "GET /{resource}/{id}" and "GET /{resource}/{id}/{language}".
func (h *Handler) handleGet(rw http.ResponseWriter, req *http.Request) error {
	_, res, err := h.resolve(req)
	if err != nil {
		return err
	}

	id, err := pathID(req)
	if err != nil {
		return err
	}

	got, err := res.Get(req.Context(), &backends.GetParams{
		ID:       id,
		Language: req.PathValue("language"),
	})
	if err != nil {
		return err
	}

	return h.writeJSON(rw, http.StatusOK, payload(got.Entity))
}

// handleRemove handles "DELETE /{resource}/{id}".
func (h *Handler) handleRemove(rw http.ResponseWriter, req *http.Request) error {
	desc, res, err := h.resolve(req)
	if err != nil {
		return err
	}

	id, err := pathID(req)
	if err != nil {
		return err
	}

	e := entities.New(desc)
	e.AssignID(id)

	if err = res.Remove(req.Context(), &backends.RemoveParams{Entity: e}); err != nil {
		return err
	}

	rw.WriteHeader(http.StatusNoContent)

	return nil
}

// handleRemoveLanguage handles "DELETE /{resource}/{id}/{language}".
func (h *Handler) handleRemoveLanguage(rw http.ResponseWriter, req *http.Request) error {
	desc, res, err := h.resolve(req)
	if err != nil {
		return err
	}

	id, err := pathID(req)
	if err != nil {
		return err
	}

	e := entities.New(desc)
	e.AssignID(id)
	e.SetLanguage(req.PathValue("language"))

	if err = res.RemoveLanguage(req.Context(), &backends.RemoveLanguageParams{Entity: e}); err != nil {
		return err
	}

	rw.WriteHeader(http.StatusNoContent)

	return nil
}

// handleSearch handles "GET /{resource}".
func (h *Handler) handleSearch(rw http.ResponseWriter, req *http.Request) error {
	_, res, err := h.resolve(req)
	if err != nil {
		return err
	}

	q := req.URL.Query()

	if !q.Has("searchField") {
		return &clientError{err: lazyerrors.New("searchField is required")}
	}

	params := &backends.SearchParams{
		Field:          q.Get("searchField"),
		Value:          searchValue(q.Get("searchValue")),
		Language:       q.Get("searchLanguage"),
		OrderBy:        q.Get("orderBy"),
		OrderDirection: q.Get("orderDirection"),
	}

	if params.LimitFrom, err = queryLimit(q.Get("limitFrom")); err != nil {
		return err
	}

	if params.LimitTo, err = queryLimit(q.Get("limitTo")); err != nil {
		return err
	}

	found, err := res.Search(req.Context(), params)
	if err != nil {
		return err
	}

	ps := make([]*entityPayload, len(found.Entities))
	for i, e := range found.Entities {
		ps[i] = payload(e)
	}

	return h.writeJSON(rw, http.StatusOK, ps)
}

// queryLimit parses an optional pagination query parameter.
func queryLimit(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, &clientError{err: err}
	}

	return pointer.ToInt64(v), nil
}

// handleOtherLanguages handles "GET /{resource}/{id}/{language}/others".
func (h *Handler) handleOtherLanguages(rw http.ResponseWriter, req *http.Request) error {
	desc, res, err := h.resolve(req)
	if err != nil {
		return err
	}

	id, err := pathID(req)
	if err != nil {
		return err
	}

	e := entities.New(desc)
	e.AssignID(id)
	e.SetLanguage(req.PathValue("language"))

	found, err := res.ListOtherLanguages(req.Context(), &backends.OtherLanguagesParams{
		Entity:    e,
		NameField: req.URL.Query().Get("nameField"),
	})
	if err != nil {
		return err
	}

	ps := make([]variantPayload, len(found.Variants))
	for i, v := range found.Variants {
		ps[i] = variantPayload{Language: v.Language, Name: v.Name}
	}

	return h.writeJSON(rw, http.StatusOK, ps)
}
