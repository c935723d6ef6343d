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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDescriptor(t *testing.T) {
	t.Parallel()

	t.Run("Valid", func(t *testing.T) {
		t.Parallel()

		desc, err := NewDescriptor("articles", []string{"title", "author_id"}, []string{"body"})
		require.NoError(t, err)

		assert.Equal(t, "articles", desc.Name())
		assert.Equal(t, "articles_language", desc.LanguageName())
		assert.Equal(t, []string{"title", "author_id"}, desc.Fields())
		assert.Equal(t, []string{"body"}, desc.LanguageFields())
		assert.True(t, desc.HasLanguageFields())
		assert.True(t, desc.IsLanguageField("body"))
		assert.False(t, desc.IsLanguageField("title"))
	})

	t.Run("NoLanguageFields", func(t *testing.T) {
		t.Parallel()

		desc, err := NewDescriptor("tags", []string{"slug"}, nil)
		require.NoError(t, err)

		assert.False(t, desc.HasLanguageFields())
		assert.Empty(t, desc.LanguageFields())
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()

		for name, tc := range map[string]struct {
			resource       string
			fields         []string
			languageFields []string
		}{
			"EmptyResource":    {"", []string{"title"}, nil},
			"BadResource":      {"articles; DROP", []string{"title"}, nil},
			"DigitResource":    {"1articles", []string{"title"}, nil},
			"NoFields":         {"articles", nil, nil},
			"BadField":         {"articles", []string{"title-x"}, nil},
			"BadLanguageField": {"articles", []string{"title"}, []string{"bo dy"}},
			"DuplicateField":   {"articles", []string{"title", "title"}, nil},
			"Overlap":          {"articles", []string{"title"}, []string{"title"}},
		} {
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				_, err := NewDescriptor(tc.resource, tc.fields, tc.languageFields)
				assert.Error(t, err)
			})
		}
	})
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateName("a"))
	assert.NoError(t, ValidateName("_private"))
	assert.NoError(t, ValidateName("author_id2"))

	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("2fast"))
	assert.Error(t, ValidateName("semi;colon"))
	assert.Error(t, ValidateName("quo\"te"))
}
