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

package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		v        any
		expected any
	}{
		"IntegralNumber": {json.Number("7"), int64(7)},
		"FloatNumber":    {json.Number("7.5"), 7.5},
		"String":         {"7", "7"},
		"Nil":            {nil, nil},
		"Bool":           {true, true},
		"Nested": {
			map[string]any{"a": json.Number("1"), "b": []any{json.Number("2.5")}},
			map[string]any{"a": int64(1), "b": []any{2.5}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeValue(tc.v))
		})
	}
}

func TestFromDataNormalizes(t *testing.T) {
	t.Parallel()

	desc, err := NewDescriptor("articles", []string{"author_id"}, nil)
	require.NoError(t, err)

	e := FromData(desc, map[string]any{"author_id": json.Number("7")})
	assert.Equal(t, int64(7), e.Get("author_id"))

	e.Set("author_id", json.Number("8"))
	assert.Equal(t, int64(8), e.Get("author_id"))
}
