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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/backends/relational"
	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/server"
	"github.com/lingstore/lingstore/internal/util/testutil"
)

// testRemote starts an HTTP server over a fresh SQLite-backed store
// and returns a remote backend pointed at it.
func testRemote(t *testing.T, auth string, descs ...*entities.Descriptor) backends.Backend {
	t.Helper()

	ctx := testutil.Ctx(t)
	uri := testutil.SQLiteURI(t)

	store, err := relational.NewBackend(ctx, &relational.NewBackendParams{
		ReadURI:     uri,
		WriteURI:    uri,
		Descriptors: descs,
		L:           testutil.Logger(t),
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	h, err := server.NewHandler(&server.NewHandlerParams{
		Backend:       store,
		Descriptors:   descs,
		Authorization: auth,
		L:             testutil.Logger(t),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	b, err := NewBackend(&NewBackendParams{
		Base:          srv.URL,
		HTTPClient:    srv.Client(),
		Authorization: auth,
		L:             testutil.Logger(t),
	})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	return b
}

func articlesDescriptor(t *testing.T) *entities.Descriptor {
	t.Helper()

	desc, err := entities.NewDescriptor("articles", []string{"title", "author_id"}, []string{"body"})
	require.NoError(t, err)

	return desc
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(&NewBackendParams{Base: "ftp://example.com/", L: testutil.Logger(t)})
	assert.Error(t, err)

	b, err := NewBackend(&NewBackendParams{Base: "https://api.example.com/v1/", L: testutil.Logger(t)})
	require.NoError(t, err)
	b.Close()
}

func TestRemoteRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)
	b := testRemote(t, "", desc)

	r, err := b.Resource(desc)
	require.NoError(t, err)

	e := entities.FromData(desc, map[string]any{
		"title":     "X",
		"author_id": "7",
		"body":      "hello",
	})
	e.SetLanguage("en")

	saved, err := r.Save(ctx, &backends.SaveParams{Entity: e})
	require.NoError(t, err)

	id, ok := saved.Entity.ID()
	require.True(t, ok, "save must assign an identifier")

	t.Run("Get", func(t *testing.T) {
		got, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
		require.NoError(t, err)

		assert.Equal(t, "X", got.Entity.Get("title"))
		assert.Equal(t, "hello", got.Entity.Get("body"))
		assert.Equal(t, "en", got.Entity.Language())
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "fr"})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound))
	})

	t.Run("SaveExisting", func(t *testing.T) {
		fr := entities.FromData(desc, map[string]any{"title": "X", "author_id": "7", "body": "bonjour"})
		fr.AssignID(id)
		fr.SetLanguage("fr")

		_, err := r.Save(ctx, &backends.SaveParams{Entity: fr})
		require.NoError(t, err)

		res, err := r.ListOtherLanguages(ctx, &backends.OtherLanguagesParams{
			Entity:    saved.Entity,
			NameField: "body",
		})
		require.NoError(t, err)
		require.Len(t, res.Variants, 1)
		assert.Equal(t, "fr", res.Variants[0].Language)
		assert.Equal(t, "bonjour", res.Variants[0].Name)
	})

	t.Run("Search", func(t *testing.T) {
		found, err := r.Search(ctx, &backends.SearchParams{
			Field:          "author_id",
			Value:          "7",
			Language:       "en",
			OrderBy:        "title",
			OrderDirection: "asc",
		})
		require.NoError(t, err)
		require.Len(t, found.Entities, 1)
		assert.Equal(t, "X", found.Entities[0].Get("title"))
		assert.Equal(t, "en", found.Entities[0].Language())
	})

	t.Run("RemoveLanguage", func(t *testing.T) {
		fr := entities.New(desc)
		fr.AssignID(id)
		fr.SetLanguage("fr")

		require.NoError(t, r.RemoveLanguage(ctx, &backends.RemoveLanguageParams{Entity: fr}))

		_, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "fr"})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound))

		_, err = r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
		assert.NoError(t, err)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, r.Remove(ctx, &backends.RemoveParams{Entity: saved.Entity}))

		_, err := r.Get(ctx, &backends.GetParams{ID: id})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound))
	})
}

func TestRemoteScalarValues(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)
	b := testRemote(t, "", desc)

	r, err := b.Resource(desc)
	require.NoError(t, err)

	e := entities.FromData(desc, map[string]any{
		"title":     "X",
		"author_id": int64(7),
		"body":      "hello",
	})
	e.SetLanguage("en")

	saved, err := r.Save(ctx, &backends.SaveParams{Entity: e})
	require.NoError(t, err)

	id, _ := saved.Entity.ID()

	// numbers keep their scalar type across the wire
	got, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Entity.Get("author_id"))

	found, err := r.Search(ctx, &backends.SearchParams{Field: "author_id", Value: int64(7)})
	require.NoError(t, err)
	require.Len(t, found.Entities, 1)
	assert.Equal(t, int64(7), found.Entities[0].Get("author_id"))

	found, err = r.Search(ctx, &backends.SearchParams{Field: "author_id", Value: "7"})
	require.NoError(t, err)
	assert.Empty(t, found.Entities, "the string \"7\" must not match the stored number 7")
}

func TestRemoteAuthorization(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)

	authorized := testRemote(t, "Bearer secret", desc)

	r, err := authorized.Resource(desc)
	require.NoError(t, err)

	e := entities.FromData(desc, map[string]any{"title": "X", "author_id": "7", "body": "hello"})
	e.SetLanguage("en")

	saved, err := r.Save(ctx, &backends.SaveParams{Entity: e})
	require.NoError(t, err)

	id, _ := saved.Entity.ID()

	_, err = r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
	require.NoError(t, err)
}
