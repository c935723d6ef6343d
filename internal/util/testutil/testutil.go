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

// Package testutil provides testing helpers.
package testutil

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"
)

// Ctx returns a test context.
// It is canceled when the test is finished or interrupted.
func Ctx(tb testing.TB) context.Context {
	tb.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)

	return ctx
}

// SQLiteURI returns a SQLite URI for a fresh database file in the test's temporary directory.
//
// The same URI is safe to open more than once; connections share one database file.
func SQLiteURI(tb testing.TB) string {
	tb.Helper()

	u := url.URL{
		Scheme: "file",
		Opaque: filepath.ToSlash(filepath.Join(tb.TempDir(), "lingstore.db")),
	}

	return u.String()
}
