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

import "testing"

func compileTest(t *testing.T, src string) *layout {
	t.Helper()
	lay, err := compileSchema(parseSchema(t, src))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return lay
}

func TestResolveSeparators(t *testing.T) {
	lay := compileTest(t, kitchenSinkSchema)
	tests := []struct {
		path string
		want string // resolved node name, "" for not found
	}{
		{"cfg/rev", "rev"},
		{"cfg.rev", "rev"},
		{"cfg.name", "name"},
		{"data/0", "0"},
		{"data.2", "2"},
		{"data/3", ""},
		{"data/-1", ""},
		{"data/x", ""},
		{"cfg/rev/deep", ""},
		{"nope", ""},
		{"", ""},
	}
	for _, tt := range tests {
		n := resolveNode(lay.root, tt.path)
		switch {
		case tt.want == "" && n != nil:
			t.Errorf("resolve(%q) = %s, want nil", tt.path, n.name)
		case tt.want != "" && (n == nil || n.name != tt.want):
			t.Errorf("resolve(%q) = %v, want %s", tt.path, n, tt.want)
		}
	}
}

// A segment that is a strict prefix of a child name matches nothing, even
// when unambiguous.
func TestResolveRejectsBarePrefix(t *testing.T) {
	lay := compileTest(t, `{
		"position": { "type": "int", "size": 4, "defaultValue": 0 },
		"velocity": { "type": "int", "size": 4, "defaultValue": 0 }
	}`)
	if n := resolveNode(lay.root, "pos"); n != nil {
		t.Errorf("resolve(pos) = %s, want nil", n.name)
	}
	if n := resolveNode(lay.root, "position"); n == nil {
		t.Error("resolve(position) = nil, want node")
	}
	if n := resolveNode(lay.root, "positionX"); n != nil {
		t.Errorf("resolve(positionX) = %s, want nil", n.name)
	}
}

func TestResolveAtSubtree(t *testing.T) {
	lay := compileTest(t, kitchenSinkSchema)
	cfg := resolveNode(lay.root, "cfg")
	if cfg == nil {
		t.Fatal("cannot resolve cfg")
	}
	if n := resolveNode(cfg, "rev"); n == nil || n.name != "rev" {
		t.Errorf("resolve(rev) at cfg = %v", n)
	}
	if n := resolveNode(cfg, "cfg/rev"); n != nil {
		t.Error("cfg path resolved relative to cfg")
	}
}
