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
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/teststress"
	"github.com/lingstore/lingstore/internal/util/testutil"
)

// testBackend returns a backend over a fresh SQLite database serving the given types.
func testBackend(t *testing.T, ctx context.Context, descs ...*entities.Descriptor) backends.Backend {
	t.Helper()

	uri := testutil.SQLiteURI(t)

	b, err := NewBackend(ctx, &NewBackendParams{
		ReadURI:     uri,
		WriteURI:    uri,
		Descriptors: descs,
		L:           testutil.Logger(t),
	})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	return b
}

func TestBackendMismatchedEngines(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(testutil.Ctx(t), &NewBackendParams{
		ReadURI:  testutil.SQLiteURI(t),
		WriteURI: "postgres://127.0.0.1:1/db",
		L:        testutil.Logger(t),
	})
	assert.Error(t, err)
}

func TestSaveGetLifecycle(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)
	b := testBackend(t, ctx, desc)

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

	t.Run("GetWithLanguage", func(t *testing.T) {
		got, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
		require.NoError(t, err)

		assert.Equal(t, "X", got.Entity.Get("title"))
		assert.Equal(t, "7", got.Entity.Get("author_id"))
		assert.Equal(t, "hello", got.Entity.Get("body"))
		assert.Equal(t, "en", got.Entity.Language())
	})

	t.Run("GetBaseOnly", func(t *testing.T) {
		got, err := r.Get(ctx, &backends.GetParams{ID: id})
		require.NoError(t, err)

		assert.Equal(t, "X", got.Entity.Get("title"))
		assert.Nil(t, got.Entity.Get("body"))
		assert.Empty(t, got.Entity.Language())
	})

	t.Run("GetMissingLanguage", func(t *testing.T) {
		_, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "fr"})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound))
	})

	t.Run("GetMissingID", func(t *testing.T) {
		_, err := r.Get(ctx, &backends.GetParams{ID: id + 1000})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound))
	})
}

func TestSaveUpdatesExisting(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)
	b := testBackend(t, ctx, desc)

	r, err := b.Resource(desc)
	require.NoError(t, err)

	e := entities.FromData(desc, map[string]any{"title": "X", "author_id": "7", "body": "hello"})
	e.SetLanguage("en")

	saved, err := r.Save(ctx, &backends.SaveParams{Entity: e})
	require.NoError(t, err)

	id, _ := saved.Entity.ID()

	// a second save with the assigned id is an update, not a new insert
	update := entities.FromData(desc, map[string]any{"title": "X2", "author_id": "7", "body": "hi"})
	update.AssignID(id)
	update.SetLanguage("en")

	saved2, err := r.Save(ctx, &backends.SaveParams{Entity: update})
	require.NoError(t, err)

	id2, _ := saved2.Entity.ID()
	assert.Equal(t, id, id2)

	found, err := r.Search(ctx, &backends.SearchParams{Field: "author_id", Value: "7"})
	require.NoError(t, err)
	require.Len(t, found.Entities, 1)
	assert.Equal(t, "X2", found.Entities[0].Get("title"))

	got, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Entity.Get("body"))
}

func TestLanguageVariants(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)
	b := testBackend(t, ctx, desc)

	r, err := b.Resource(desc)
	require.NoError(t, err)

	en := entities.FromData(desc, map[string]any{"title": "X", "author_id": "7", "body": "hello"})
	en.SetLanguage("en")

	saved, err := r.Save(ctx, &backends.SaveParams{Entity: en})
	require.NoError(t, err)

	id, _ := saved.Entity.ID()

	fr := entities.FromData(desc, map[string]any{"title": "X", "author_id": "7", "body": "bonjour"})
	fr.AssignID(id)
	fr.SetLanguage("fr")

	_, err = r.Save(ctx, &backends.SaveParams{Entity: fr})
	require.NoError(t, err)

	t.Run("OtherLanguages", func(t *testing.T) {
		res, err := r.ListOtherLanguages(ctx, &backends.OtherLanguagesParams{Entity: saved.Entity})
		require.NoError(t, err)
		require.Len(t, res.Variants, 1)
		assert.Equal(t, "fr", res.Variants[0].Language)
		assert.Nil(t, res.Variants[0].Name)
	})

	t.Run("OtherLanguagesWithName", func(t *testing.T) {
		res, err := r.ListOtherLanguages(ctx, &backends.OtherLanguagesParams{
			Entity:    saved.Entity,
			NameField: "body",
		})
		require.NoError(t, err)
		require.Len(t, res.Variants, 1)
		assert.Equal(t, "fr", res.Variants[0].Language)
		assert.Equal(t, "bonjour", res.Variants[0].Name)
	})

	t.Run("OtherLanguagesIgnoresBaseField", func(t *testing.T) {
		// a name field outside the declared translatable fields is ignored
		res, err := r.ListOtherLanguages(ctx, &backends.OtherLanguagesParams{
			Entity:    saved.Entity,
			NameField: "title",
		})
		require.NoError(t, err)
		require.Len(t, res.Variants, 1)
		assert.Nil(t, res.Variants[0].Name)
	})

	t.Run("RemoveLanguage", func(t *testing.T) {
		err := r.RemoveLanguage(ctx, &backends.RemoveLanguageParams{Entity: fr})
		require.NoError(t, err)

		// only the (id, fr) row is gone; the other variant is untouched
		_, err = r.Get(ctx, &backends.GetParams{ID: id, Language: "fr"})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound))

		got, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Entity.Get("body"))

		// removing it again is a no-op success
		err = r.RemoveLanguage(ctx, &backends.RemoveLanguageParams{Entity: fr})
		assert.NoError(t, err)
	})

	t.Run("RemoveCascades", func(t *testing.T) {
		err := r.Remove(ctx, &backends.RemoveParams{Entity: saved.Entity})
		require.NoError(t, err)

		_, err = r.Get(ctx, &backends.GetParams{ID: id})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound))

		_, err = r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeEntityNotFound))
	})
}

func TestSearch(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)
	b := testBackend(t, ctx, desc)

	r, err := b.Resource(desc)
	require.NoError(t, err)

	for i, title := range []string{"c", "a", "b"} {
		e := entities.FromData(desc, map[string]any{"title": title, "author_id": "7", "body": "b" + title})
		e.SetLanguage("en")

		if i == 2 {
			e.Set("author_id", "8")
		}

		_, err = r.Save(ctx, &backends.SaveParams{Entity: e})
		require.NoError(t, err)
	}

	t.Run("Equality", func(t *testing.T) {
		found, err := r.Search(ctx, &backends.SearchParams{Field: "author_id", Value: "7"})
		require.NoError(t, err)
		assert.Len(t, found.Entities, 2)
	})

	t.Run("NoMatchIsEmptySuccess", func(t *testing.T) {
		found, err := r.Search(ctx, &backends.SearchParams{Field: "author_id", Value: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, found.Entities)
	})

	t.Run("Ordered", func(t *testing.T) {
		found, err := r.Search(ctx, &backends.SearchParams{
			Field:          "author_id",
			Value:          "7",
			Language:       "en",
			OrderBy:        "title",
			OrderDirection: "asc",
		})
		require.NoError(t, err)
		require.Len(t, found.Entities, 2)
		assert.Equal(t, "a", found.Entities[0].Get("title"))
		assert.Equal(t, "c", found.Entities[1].Get("title"))
	})

	t.Run("InvalidDirectionDiscardsOrderBy", func(t *testing.T) {
		// the invalid orderBy value never reaches the statement
		found, err := r.Search(ctx, &backends.SearchParams{
			Field:          "author_id",
			Value:          "7",
			OrderBy:        "no such column",
			OrderDirection: "sideways",
		})
		require.NoError(t, err)
		assert.Len(t, found.Entities, 2)
	})

	t.Run("InvalidFieldName", func(t *testing.T) {
		_, err := r.Search(ctx, &backends.SearchParams{Field: "author_id; DROP TABLE", Value: "7"})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeFieldNameIsInvalid))
	})

	t.Run("InvalidOrderByName", func(t *testing.T) {
		_, err := r.Search(ctx, &backends.SearchParams{
			Field:          "author_id",
			Value:          "7",
			OrderBy:        "title; DROP TABLE",
			OrderDirection: "asc",
		})
		assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeFieldNameIsInvalid))
	})

	t.Run("Pagination", func(t *testing.T) {
		found, err := r.Search(ctx, &backends.SearchParams{
			Field:          "author_id",
			Value:          "7",
			OrderBy:        "title",
			OrderDirection: "asc",
			LimitFrom:      pointer.ToInt64(1),
			LimitTo:        pointer.ToInt64(1),
		})
		require.NoError(t, err)
		require.Len(t, found.Entities, 1)
		assert.Equal(t, "c", found.Entities[0].Get("title"))
	})

	t.Run("OversizedLimit", func(t *testing.T) {
		found, err := r.Search(ctx, &backends.SearchParams{
			Field:   "author_id",
			Value:   "7",
			LimitTo: pointer.ToInt64(5000),
		})
		require.NoError(t, err)
		assert.Len(t, found.Entities, 2)
	})
}

func TestConcurrentSaves(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)
	b := testBackend(t, ctx, desc)

	r, err := b.Resource(desc)
	require.NoError(t, err)

	e := entities.FromData(desc, map[string]any{"title": "initial", "author_id": "7", "body": "hello"})
	e.SetLanguage("en")

	saved, err := r.Save(ctx, &backends.SaveParams{Entity: e})
	require.NoError(t, err)

	id, _ := saved.Entity.ID()

	// concurrent saves to the same identifier serialize on the write pool;
	// the surviving row is one of the written values (last writer wins)
	var i atomic.Int64

	teststress.Stress(t, func(ready chan<- struct{}, start <-chan struct{}) {
		title := "t" + strconv.FormatInt(i.Add(1), 10)

		update := entities.FromData(desc, map[string]any{"title": title, "author_id": "7", "body": "b"})
		update.AssignID(id)
		update.SetLanguage("en")

		ready <- struct{}{}
		<-start

		_, err := r.Save(ctx, &backends.SaveParams{Entity: update})
		assert.NoError(t, err)
	})

	found, err := r.Search(ctx, &backends.SearchParams{Field: "author_id", Value: "7"})
	require.NoError(t, err)
	require.Len(t, found.Entities, 1, "updates must never create new rows")

	title, _ := found.Entities[0].Get("title").(string)
	assert.Regexp(t, `^t\d+$`, title)
}

func TestScalarValuesSurviveStorage(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)
	b := testBackend(t, ctx, desc)

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

	t.Run("Get", func(t *testing.T) {
		got, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
		require.NoError(t, err)

		assert.Equal(t, int64(7), got.Entity.Get("author_id"))
		assert.Equal(t, "X", got.Entity.Get("title"))
	})

	t.Run("SearchByNumber", func(t *testing.T) {
		found, err := r.Search(ctx, &backends.SearchParams{Field: "author_id", Value: int64(7)})
		require.NoError(t, err)
		require.Len(t, found.Entities, 1)
		assert.Equal(t, int64(7), found.Entities[0].Get("author_id"))
	})

	t.Run("SearchIsTypeStrict", func(t *testing.T) {
		// the string "7" never matches the stored number 7
		found, err := r.Search(ctx, &backends.SearchParams{Field: "author_id", Value: "7"})
		require.NoError(t, err)
		assert.Empty(t, found.Entities)
	})

	t.Run("OtherScalars", func(t *testing.T) {
		metrics, err := entities.NewDescriptor("metrics", []string{"ratio", "published"}, nil)
		require.NoError(t, err)

		mb := testBackend(t, ctx, metrics)

		mr, err := mb.Resource(metrics)
		require.NoError(t, err)

		m := entities.FromData(metrics, map[string]any{"ratio": 0.5, "published": true})

		msaved, err := mr.Save(ctx, &backends.SaveParams{Entity: m})
		require.NoError(t, err)

		mid, _ := msaved.Entity.ID()

		got, err := mr.Get(ctx, &backends.GetParams{ID: mid})
		require.NoError(t, err)
		assert.Equal(t, 0.5, got.Entity.Get("ratio"))
		assert.Equal(t, true, got.Entity.Get("published"))
	})
}

func TestSaveRollsBackOnLanguageWriteFailure(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	desc := articlesDescriptor(t)

	uri := testutil.SQLiteURI(t)

	b, err := NewBackend(ctx, &NewBackendParams{
		ReadURI:     uri,
		WriteURI:    uri,
		Descriptors: []*entities.Descriptor{desc},
		L:           testutil.Logger(t),
	})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	r, err := b.Resource(desc)
	require.NoError(t, err)

	// drop the language relation out-of-band so the second write of the save fails
	raw, err := sql.Open("sqlite", uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	_, err = raw.ExecContext(ctx, `DROP TABLE "articles_language"`)
	require.NoError(t, err)

	e := entities.FromData(desc, map[string]any{"title": "X", "author_id": int64(7), "body": "hello"})
	e.SetLanguage("en")

	_, err = r.Save(ctx, &backends.SaveParams{Entity: e})
	assert.True(t, backends.ErrorCodeIs(err, backends.ErrorCodeTransactionFailed))

	// the base write is rolled back together with the failed language write,
	// and a failed save never assigns an identifier
	_, ok := e.ID()
	assert.False(t, ok)

	var n int
	require.NoError(t, raw.QueryRowContext(ctx, `SELECT COUNT(*) FROM "articles"`).Scan(&n))
	assert.Zero(t, n)
}

func TestSaveWithoutLanguageFields(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	tags, err := entities.NewDescriptor("tags", []string{"slug"}, nil)
	require.NoError(t, err)

	b := testBackend(t, ctx, tags)

	r, err := b.Resource(tags)
	require.NoError(t, err)

	e := entities.FromData(tags, map[string]any{"slug": "go"})

	saved, err := r.Save(ctx, &backends.SaveParams{Entity: e})
	require.NoError(t, err)

	id, ok := saved.Entity.ID()
	require.True(t, ok)

	got, err := r.Get(ctx, &backends.GetParams{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "go", got.Entity.Get("slug"))

	// the language tag is ignored for types without translatable fields
	got2, err := r.Get(ctx, &backends.GetParams{ID: id, Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "go", got2.Entity.Get("slug"))
}
