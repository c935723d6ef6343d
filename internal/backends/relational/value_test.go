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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCodec(t *testing.T) {
	t.Parallel()

	for name, v := range map[string]any{
		"Nil":    nil,
		"String": "bonjour",
		"Int":    int64(7),
		"Float":  7.5,
		"Bool":   true,
		"Map":    map[string]any{"a": int64(1), "b": "x"},
		"Slice":  []any{int64(1), "x", nil},
	} {
		t.Run(name, func(t *testing.T) {
			enc, err := encodeValue(v)
			require.NoError(t, err)

			dec, err := decodeValue(enc)
			require.NoError(t, err)

			assert.Equal(t, v, dec)
		})
	}

	t.Run("BytesFromDriver", func(t *testing.T) {
		dec, err := decodeValue([]byte(`7`))
		require.NoError(t, err)
		assert.Equal(t, int64(7), dec)
	})

	t.Run("UnexpectedType", func(t *testing.T) {
		_, err := decodeValue(42)
		assert.Error(t, err)
	})
}
