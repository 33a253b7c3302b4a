/*
 *
 * Copyright 2025 the shmobj authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package document

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidDocument is returned when the input is not well-formed JSON.
var ErrInvalidDocument = errors.New("document: input is not valid JSON")

// ParseFile reads path and parses it into a document value.
func ParseFile(path string) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
	}
	return v, nil
}

// Parse parses a JSON byte slice into a document value. JSON null parses to
// a nil Value.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidDocument
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

func fromResult(r gjson.Result) Value {
	switch {
	case r.IsObject():
		m := NewMap()
		r.ForEach(func(key, value gjson.Result) bool {
			m.Append(key.String(), fromResult(value))
			return true
		})
		return m
	case r.IsArray():
		a := NewArray()
		for _, item := range r.Array() {
			a.Append(fromResult(item))
		}
		return a
	case r.Type == gjson.String:
		return NewString(r.Str)
	case r.Type == gjson.Number:
		if isIntegerLiteral(r.Raw) {
			return NewInteger(r.Int())
		}
		return NewDouble(r.Float())
	case r.Type == gjson.True:
		return NewBoolean(true)
	case r.Type == gjson.False:
		return NewBoolean(false)
	}
	return nil
}

func isIntegerLiteral(raw string) bool {
	return !strings.ContainsAny(raw, ".eE")
}
