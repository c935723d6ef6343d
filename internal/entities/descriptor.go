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

// Package entities provides descriptors and instances of multilingual entities.
//
// An entity consists of language-independent attributes stored in a base relation,
// and, optionally, per-locale attributes stored in a sibling language relation
// keyed by the same identifier and a locale tag.
package entities

import (
	"regexp"
	"slices"

	"github.com/lingstore/lingstore/internal/util/lazyerrors"
)

// LanguageSuffix is appended to a resource name to form the language relation name.
const LanguageSuffix = "_language"

// nameRe validates resource and field names.
//
// Names end up inside generated queries and URL paths,
// so anything beyond basic identifiers is rejected outright.
var nameRe = regexp.MustCompile("^[a-zA-Z_][a-zA-Z0-9_]{0,62}$")

// Descriptor describes one entity type: its storage resource name,
// base field names, and optional translatable field names.
//
// Descriptors are immutable after construction; one Descriptor is shared
// by all instances of the type.
type Descriptor struct {
	name           string
	fields         []string
	languageFields []string
}

// NewDescriptor creates a new Descriptor.
//
// Name and all field names must be valid identifiers;
// fields and languageFields must not overlap or contain duplicates.
// LanguageFields may be empty for types without per-locale data.
func NewDescriptor(name string, fields, languageFields []string) (*Descriptor, error) {
	if err := ValidateName(name); err != nil {
		return nil, lazyerrors.Error(err)
	}

	if len(fields) == 0 {
		return nil, lazyerrors.Errorf("entity type %q has no fields", name)
	}

	seen := make(map[string]struct{}, len(fields)+len(languageFields))

	for _, lists := range [][]string{fields, languageFields} {
		for _, f := range lists {
			if err := ValidateName(f); err != nil {
				return nil, lazyerrors.Error(err)
			}

			if _, dup := seen[f]; dup {
				return nil, lazyerrors.Errorf("entity type %q declares field %q more than once", name, f)
			}

			seen[f] = struct{}{}
		}
	}

	return &Descriptor{
		name:           name,
		fields:         slices.Clone(fields),
		languageFields: slices.Clone(languageFields),
	}, nil
}

// Name returns the storage resource name.
func (d *Descriptor) Name() string {
	return d.name
}

// LanguageName returns the name of the sibling language relation.
func (d *Descriptor) LanguageName() string {
	return d.name + LanguageSuffix
}

// Fields returns the ordered base field names.
//
// The caller must not modify the returned slice.
func (d *Descriptor) Fields() []string {
	return d.fields
}

// LanguageFields returns the ordered translatable field names.
//
// It returns an empty slice for types without per-locale data.
// The caller must not modify the returned slice.
func (d *Descriptor) LanguageFields() []string {
	return d.languageFields
}

// HasLanguageFields reports whether the type declares per-locale data.
func (d *Descriptor) HasLanguageFields() bool {
	return len(d.languageFields) > 0
}

// IsLanguageField reports whether f is one of the declared translatable field names.
func (d *Descriptor) IsLanguageField(f string) bool {
	return slices.Contains(d.languageFields, f)
}

// ValidateName checks that a resource or field name is a valid identifier.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return lazyerrors.Errorf("invalid name %q", name)
	}

	return nil
}
