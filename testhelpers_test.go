/*
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
 */

package shmobj

import (
	"testing"

	"github.com/Hertig-family/shmobj/document"
)

// parseSchema parses a JSON schema literal used by the tests.
func parseSchema(t *testing.T, src string) *document.Map {
	t.Helper()
	v, err := document.Parse([]byte(src))
	if err != nil {
		t.Fatalf("failed to parse schema: %v", err)
	}
	m, ok := v.(*document.Map)
	if !ok {
		t.Fatalf("schema is not a map")
	}
	return m
}

// attachTest attaches a store in dir and registers cleanup. Tests that need
// several attachers of one segment share a dir.
func attachTest(t *testing.T, dir, src, segName string) *SharedObject {
	t.Helper()
	o, err := New(parseSchema(t, src), segName, &Options{BaseDir: dir})
	if err != nil {
		t.Fatalf("failed to attach segment %s: %v", segName, err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

// A schema exercising every primitive class plus nested composites.
const kitchenSinkSchema = `{
	"cfg": {
		"type": "unit",
		"rev":   { "type": "int", "size": 4, "defaultValue": 7 },
		"serial":{ "type": "int", "size": 8, "defaultValue": 1000 },
		"mode":  { "type": "int", "size": 2, "defaultValue": 3 },
		"flags": { "type": "int", "size": 1, "defaultValue": 1 },
		"scale": { "type": "float", "defaultValue": 1.5, "precision": 2 },
		"name":  { "type": "string", "size": 16, "defaultValue": "unit-a" },
		"armed": { "type": "bool", "defaultValue": false }
	},
	"data": {
		"type": "array",
		"0": { "type": "int", "size": 1, "defaultValue": 1 },
		"1": { "type": "int", "size": 1, "defaultValue": 2 },
		"2": { "type": "int", "size": 1, "defaultValue": 3 }
	}
}`
