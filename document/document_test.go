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
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
)

const sample = `{
	"cfg": {
		"type": "unit",
		"rev": { "type": "int", "size": 4, "defaultValue": 7 },
		"scale": { "type": "float", "defaultValue": 1.5 }
	},
	"tags": [ "a", "b" ],
	"enabled": true,
	"count": 12
}`

func TestParseShapes(t *testing.T) {
	v, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	root, ok := v.(*Map)
	if !ok {
		t.Fatal("root is not a map")
	}

	cfg := root.FindElement("cfg")
	if !IsMap(cfg) {
		t.Fatal("cfg is not a map")
	}
	rev := cfg.(*Map).FindElement("rev").(*Map)
	if !IsInteger(rev.FindElement("defaultValue")) {
		t.Error("integer literal did not parse as integer")
	}
	if !IsDouble(cfg.(*Map).FindElement("scale").(*Map).FindElement("defaultValue")) {
		t.Error("float literal did not parse as double")
	}
	if !IsArray(root.FindElement("tags")) {
		t.Error("tags is not an array")
	}
	if !IsBoolean(root.FindElement("enabled")) {
		t.Error("enabled is not a boolean")
	}
	assert.Equal(t, ToInt(root.FindElement("count")), 12)
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte(`{"a": `)); err == nil {
		t.Error("truncated JSON parsed")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	v, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if !IsMap(v) {
		t.Error("parsed file is not a map")
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file parsed")
	}
}

func TestFindCaseElement(t *testing.T) {
	m := NewMap()
	m.Append("defaultValue", NewInteger(1))
	m.Append("Type", NewString("int"))

	if ToInt(m.FindCaseElement("defaultvalue")) != 1 {
		t.Error("case-insensitive lookup failed")
	}
	if Str(m.FindCaseElement("type")) != "int" {
		t.Error("case-insensitive lookup of Type failed")
	}
	if m.FindElement("type") != nil {
		t.Error("exact lookup matched a different case")
	}
	if m.FindCaseElement("nope") != nil {
		t.Error("lookup of a missing key succeeded")
	}
}

func TestCoercions(t *testing.T) {
	assert.Equal(t, ToLong(NewString("0x1F")), int64(31))
	assert.Equal(t, ToLong(NewString("017")), int64(15))
	assert.Equal(t, ToLong(NewString("42")), int64(42))
	assert.Equal(t, ToLong(NewDouble(3.9)), int64(3))
	assert.Equal(t, ToDouble(NewInteger(4)), 4.0)
	assert.Equal(t, ToBool(NewString("TRUE")), true)
	assert.Equal(t, ToBool(NewString("1")), false)
	assert.Equal(t, ToBool(NewInteger(2)), true)
	assert.Equal(t, Str(NewDoubleWithPrecision(1.5, 2)), "1.50")
	assert.Equal(t, Str(NewBoolean(true)), "True")
	assert.Equal(t, Str(NewInteger(-3)), "-3")
}

func TestMapOrderAndOverwrite(t *testing.T) {
	m := NewMap()
	m.Append("b", NewInteger(1))
	m.Append("a", NewInteger(2))
	m.Append("b", NewInteger(3))
	assert.Equal(t, m.Keys(), []string{"b", "a"})
	assert.Equal(t, ToInt(m.FindElement("b")), 3)
	assert.Equal(t, m.Len(), 2)
}

func TestNilSafety(t *testing.T) {
	var m *Map
	if m.FindElement("x") != nil || m.Len() != 0 {
		t.Error("nil map lookups not safe")
	}
	var a *Array
	if a.At(0) != nil || a.Len() != 0 {
		t.Error("nil array lookups not safe")
	}
	if IsMap(nil) || IsNumber(nil) || ToInt(nil) != 0 || Str(nil) != "" {
		t.Error("nil value predicates not safe")
	}
}
