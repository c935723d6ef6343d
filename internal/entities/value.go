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
)

// NormalizeValue converts decoder artifacts into canonical attribute values:
// nil, bool, string, int64, float64, and maps/slices of those.
//
// json.Number becomes int64 when the value is integral and float64 otherwise;
// maps and slices are normalized recursively; all other values pass through
// unchanged. Transports decode attribute values with json.Decoder.UseNumber
// and rely on this function to keep integers from degrading to float64.
func NormalizeValue(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}

		if f, err := v.Float64(); err == nil {
			return f
		}

		return v.String()

	case map[string]any:
		for k, e := range v {
			v[k] = NormalizeValue(e)
		}

		return v

	case []any:
		for i, e := range v {
			v[i] = NormalizeValue(e)
		}

		return v

	default:
		return v
	}
}
