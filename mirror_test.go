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

	"github.com/go-playground/assert/v2"

	"github.com/Hertig-family/shmobj/document"
)

const hysteresisSchema = `{
	"env": {
		"type": "unit",
		"temp":  { "type": "float", "defaultValue": 20.0, "hysteresis": 50, "precision": 1 },
		"count": { "type": "int", "size": 4, "defaultValue": 0, "hysteresis": 2 },
		"label": { "type": "string", "size": 16, "defaultValue": "idle" },
		"on":    { "type": "bool", "defaultValue": false }
	}
}`

func TestCheckChangesFloatHysteresis(t *testing.T) {
	dir := t.TempDir()
	o := attachTest(t, dir, hysteresisSchema, "/seg")
	m := NewMirror(o)
	temp := o.Resolve("env/temp")

	// Within the 0.5 threshold: no change reported.
	o.UpdateFloat64(temp, 20.3, true)
	out := document.NewMap()
	if m.CheckChanges(out, nil) {
		t.Error("change within hysteresis reported")
	}
	assert.Equal(t, out.Len(), 0)

	// Past the threshold relative to the mirror's 20.0.
	o.UpdateFloat64(temp, 20.6, true)
	out = document.NewMap()
	if !m.CheckChanges(out, nil) {
		t.Fatal("change past hysteresis not reported")
	}
	env, ok := out.FindElement("env").(*document.Map)
	if !ok {
		t.Fatal("diff has no env map")
	}
	assert.Equal(t, document.ToDouble(env.FindElement("temp")), 20.6)
	if env.FindElement("count") != nil || env.FindElement("label") != nil {
		t.Error("diff contains unchanged fields")
	}

	// The mirror was refreshed; the same state diffs clean.
	out = document.NewMap()
	if m.CheckChanges(out, nil) {
		t.Error("second query reported the same change again")
	}
}

func TestCheckChangesIntegerHysteresis(t *testing.T) {
	dir := t.TempDir()
	o := attachTest(t, dir, hysteresisSchema, "/seg")
	m := NewMirror(o)
	count := o.Resolve("env/count")

	o.UpdateInt32(count, 2, true) // |2-0| not > 2
	out := document.NewMap()
	if m.CheckChanges(out, nil) {
		t.Error("integer change within hysteresis reported")
	}

	o.UpdateInt32(count, 3, true)
	out = document.NewMap()
	if !m.CheckChanges(out, nil) {
		t.Fatal("integer change past hysteresis not reported")
	}
	env := out.FindElement("env").(*document.Map)
	assert.Equal(t, document.ToInt(env.FindElement("count")), 3)
}

func TestCheckChangesExactKinds(t *testing.T) {
	dir := t.TempDir()
	o := attachTest(t, dir, hysteresisSchema, "/seg")
	m := NewMirror(o)

	o.UpdateBool(o.Resolve("env/on"), true, true)
	o.UpdateString(o.Resolve("env/label"), "busy", true)
	out := document.NewMap()
	if !m.CheckChanges(out, nil) {
		t.Fatal("bool/string changes not reported")
	}
	env := out.FindElement("env").(*document.Map)
	assert.Equal(t, document.ToBool(env.FindElement("on")), true)
	assert.Equal(t, document.Str(env.FindElement("label")), "busy")
}

func TestCheckChangesSubtreeAndArrayOutput(t *testing.T) {
	dir := t.TempDir()
	o := attachTest(t, dir, kitchenSinkSchema, "/seg")
	m := NewMirror(o)

	o.UpdateInt8(o.Resolve("data/1"), 9, true)

	// Rooted at the array, into an array-shaped diff: changed entries
	// append positionally.
	out := document.NewArray()
	if !m.CheckChangesPath("data", out) {
		t.Fatal("array change not reported")
	}
	assert.Equal(t, out.Len(), 1)
	assert.Equal(t, document.ToInt(out.At(0)), 9)

	// Unchanged subtree produces no entry at all.
	out2 := document.NewMap()
	if m.CheckChangesPath("cfg", out2) {
		t.Error("unchanged subtree reported a diff")
	}
	assert.Equal(t, out2.Len(), 0)
}

// Update refreshes the mirror without reporting, so a following query is
// clean.
func TestMirrorUpdateSuppressesDiff(t *testing.T) {
	dir := t.TempDir()
	o := attachTest(t, dir, hysteresisSchema, "/seg")
	m := NewMirror(o)

	o.UpdateFloat64(o.Resolve("env/temp"), 35.0, true)
	m.Update(nil)

	out := document.NewMap()
	if m.CheckChanges(out, nil) {
		t.Error("diff reported after explicit mirror update")
	}
}

func TestMirrorResolve(t *testing.T) {
	dir := t.TempDir()
	o := attachTest(t, dir, kitchenSinkSchema, "/seg")
	m := NewMirror(o)

	mn := m.Resolve("cfg.rev")
	if mn == nil || mn.Node().Name() != "rev" {
		t.Fatalf("mirror resolve cfg.rev = %v", mn)
	}
	if m.Resolve("data/3") != nil {
		t.Error("mirror resolved an out-of-range array index")
	}
	if m.Resolve("cfg/re") != nil {
		t.Error("mirror resolved a bare prefix")
	}
}
