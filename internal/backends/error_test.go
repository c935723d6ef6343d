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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewError(0, errors.New("boom")) })

	cause := errors.New("no such row")
	err := NewError(ErrorCodeEntityNotFound, cause)

	assert.Equal(t, ErrorCodeEntityNotFound, err.Code())
	assert.Equal(t, "ErrorCodeEntityNotFound: no such row", err.Error())
	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestErrorCodeIs(t *testing.T) {
	t.Parallel()

	err := NewError(ErrorCodeBackend, errors.New("boom"))

	assert.True(t, ErrorCodeIs(err, ErrorCodeBackend))
	assert.True(t, ErrorCodeIs(err, ErrorCodeEntityNotFound, ErrorCodeBackend))
	assert.False(t, ErrorCodeIs(err, ErrorCodeEntityNotFound))

	// wrapped *Error values are intentionally not unwrapped
	assert.False(t, ErrorCodeIs(errors.Join(err), ErrorCodeBackend))
	assert.False(t, ErrorCodeIs(errors.New("boom"), ErrorCodeBackend))
	assert.False(t, ErrorCodeIs(nil, ErrorCodeBackend))
}

func TestErrorCodeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ErrorCodeResourceNameIsInvalid", ErrorCodeResourceNameIsInvalid.String())
	assert.Equal(t, "ErrorCodeTransactionFailed", ErrorCodeTransactionFailed.String())
}

func TestValidateNames(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateResourceName("articles"))
	assert.NoError(t, validateFieldName("author_id"))

	err := validateResourceName("no;pe")
	assert.True(t, ErrorCodeIs(err, ErrorCodeResourceNameIsInvalid))

	err = validateFieldName("1col")
	assert.True(t, ErrorCodeIs(err, ErrorCodeFieldNameIsInvalid))
}
