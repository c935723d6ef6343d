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
	"bytes"
	"encoding/json"

	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
)

// Attribute values are stored as their JSON encoding in TEXT columns,
// so scalar types survive persistence on every engine:
// a numeric value saved as 7 is read back as int64(7), not "7".

// encodeValue returns the stored form of one attribute value.
//
// Nil stays nil and is stored as SQL NULL.
func encodeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return string(b), nil
}

// encodeValues returns a copy of data with every value in stored form.
func encodeValues(data map[string]any) (map[string]any, error) {
	res := make(map[string]any, len(data))

	for k, v := range data {
		e, err := encodeValue(v)
		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		res[k] = e
	}

	return res, nil
}

// decodeValue restores an attribute value from its stored form.
//
// Integral numbers decode as int64, other numbers as float64
// (see entities.NormalizeValue); SQL NULL decodes as nil.
func decodeValue(v any) (any, error) {
	var b []byte

	switch v := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return nil, lazyerrors.Errorf("unexpected stored value of type %T", v)
	}

	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()

	var res any
	if err := d.Decode(&res); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return entities.NormalizeValue(res), nil
}
