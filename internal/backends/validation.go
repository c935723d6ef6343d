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

package backends

import (
	"github.com/lingstore/lingstore/internal/entities"
)

// validateResourceName checks that a resource name is a valid identifier.
//
// The name is interpolated into generated queries and URL paths,
// so only identifier characters are allowed.
//
// Backends can do their own additional validation.
func validateResourceName(name string) error {
	if err := entities.ValidateName(name); err != nil {
		return NewError(ErrorCodeResourceNameIsInvalid, err)
	}

	return nil
}

// validateFieldName checks that a caller-provided field name is a valid identifier.
//
// Field names used in equality filters and ordering clauses are not validated
// against the descriptor; they are interpolated into queries,
// so anything beyond identifier characters is rejected before it gets near a statement.
func validateFieldName(name string) error {
	if err := entities.ValidateName(name); err != nil {
		return NewError(ErrorCodeFieldNameIsInvalid, err)
	}

	return nil
}
