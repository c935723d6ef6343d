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
	"fmt"
)

// Entity is a single instance of an entity type.
//
// An instance has no identifier until its first successful save;
// the backend assigns the generated identifier exactly once.
// The language tag is set only when a language-specific variant
// is being loaded or saved.
//
// Entity is not safe for concurrent use.
type Entity struct {
	desc     *Descriptor
	values   map[string]any
	language string
	id       int64
	hasID    bool
}

// New creates a new empty instance of the given type.
func New(desc *Descriptor) *Entity {
	if desc == nil {
		panic("desc must not be nil")
	}

	return &Entity{
		desc:   desc,
		values: map[string]any{},
	}
}

// FromData creates a new instance of the given type from raw field data.
//
// Keys outside the descriptor's declared fields are carried on the instance,
// but never escape through projections.
// Values are normalized with NormalizeValue.
func FromData(desc *Descriptor, data map[string]any) *Entity {
	e := New(desc)

	for k, v := range data {
		e.values[k] = NormalizeValue(v)
	}

	return e
}

// Descriptor returns the entity type descriptor.
func (e *Entity) Descriptor() *Descriptor {
	return e.desc
}

// ID returns the assigned identifier, if any.
func (e *Entity) ID() (int64, bool) {
	return e.id, e.hasID
}

// AssignID assigns the backend-generated identifier.
//
// The identifier is assigned exactly once; AssignID panics on reassignment.
func (e *Entity) AssignID(id int64) {
	if e.hasID {
		panic(fmt.Sprintf("entity %q already has id %d", e.desc.Name(), e.id))
	}

	e.id = id
	e.hasID = true
}

// Language returns the locale tag, or an empty string if none is set.
func (e *Entity) Language() string {
	return e.language
}

// SetLanguage sets the locale tag. An empty string clears it.
func (e *Entity) SetLanguage(language string) {
	e.language = language
}

// Get returns the value of the named attribute.
func (e *Entity) Get(field string) any {
	return e.values[field]
}

// Set sets the value of the named attribute, normalized with NormalizeValue.
func (e *Entity) Set(field string, value any) {
	e.values[field] = NormalizeValue(value)
}

// BaseData projects the instance onto the descriptor's base fields.
//
// The result contains an entry for every declared base field, in declaration order;
// attributes missing from the instance project as nil.
// Attributes outside the declared fields never appear in the result.
func (e *Entity) BaseData() map[string]any {
	res := make(map[string]any, len(e.desc.fields))

	for _, f := range e.desc.fields {
		res[f] = e.values[f]
	}

	return res
}

// LanguageData projects the instance onto the descriptor's translatable fields.
//
// The result is empty for types without per-locale data.
func (e *Entity) LanguageData() map[string]any {
	res := make(map[string]any, len(e.desc.languageFields))

	for _, f := range e.desc.languageFields {
		res[f] = e.values[f]
	}

	return res
}
