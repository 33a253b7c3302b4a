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
	"strconv"

	"github.com/Hertig-family/shmobj/document"
)

// Mirror holds a private copy of the shared payload and detects changes in
// shared state since the previous query. It is single-owner: reads from
// shared memory honour the subtree locks, writes to the private buffer need
// none.
type Mirror struct {
	shared *SharedObject
	buf    []byte
	root   *MirrorNode
}

// MirrorNode pairs a shared node with its per-primitive change threshold.
// Offsets into the private buffer are the shared node's own.
type MirrorNode struct {
	node       *Node
	hysteresis uint32
	subs       []*MirrorNode
}

// Node returns the shared node this mirror node tracks.
func (mn *MirrorNode) Node() *Node { return mn.node }

// NewMirror snapshots the current shared payload into a private buffer and
// builds the parallel node tree.
func NewMirror(o *SharedObject) *Mirror {
	m := &Mirror{
		shared: o,
		buf:    make([]byte, o.size),
	}
	copy(m.buf, o.mem)
	m.root = buildMirror(o.root)
	return m
}

func buildMirror(n *Node) *MirrorNode {
	mn := &MirrorNode{node: n, hysteresis: n.hysteresis}
	for _, c := range n.children {
		mn.subs = append(mn.subs, buildMirror(c))
	}
	return mn
}

// Shared returns the attached store the mirror tracks.
func (m *Mirror) Shared() *SharedObject { return m.shared }

// Resolve walks a dotted or slash-separated path through the mirror tree.
func (m *Mirror) Resolve(path string) *MirrorNode {
	return m.ResolveAt(m.root, path)
}

// ResolveAt resolves a path rooted at a mirror node; nil means the root.
func (m *Mirror) ResolveAt(base *MirrorNode, path string) *MirrorNode {
	if base == nil {
		base = m.root
	}
	cur := base
	for path != "" {
		head, rest := splitPath(path)
		if head == "" {
			return nil
		}
		idx := -1
		switch cur.node.kind {
		case KindArray:
			i, err := strconv.Atoi(head)
			if err != nil || i < 0 || i >= len(cur.subs) {
				return nil
			}
			idx = i
		case KindUnit:
			child := cur.node.findChild(head)
			if child == nil {
				return nil
			}
			for i, c := range cur.node.children {
				if c == child {
					idx = i
					break
				}
			}
		default:
			return nil
		}
		if idx < 0 {
			return nil
		}
		cur = cur.subs[idx]
		path = rest
	}
	return cur
}

// CheckChanges walks the subtree rooted at "at" (nil means the whole tree),
// compares shared state against the mirror with per-field hysteresis,
// refreshes the mirror for every changed field, and appends the new values
// into out. out must be a map or array document; composites nest as
// sub-documents and empty sub-documents are discarded. Reports whether
// anything changed.
func (m *Mirror) CheckChanges(out document.Value, at *MirrorNode) bool {
	if at == nil {
		at = m.root
	}
	if !document.IsMap(out) && !document.IsArray(out) {
		return false
	}

	if !at.node.IsComposite() {
		return m.checkPrimitive(out, at)
	}
	changed := false
	for _, c := range at.subs {
		if !c.node.IsComposite() {
			if m.checkPrimitive(out, c) {
				changed = true
			}
			continue
		}
		var sub document.Value
		if c.node.kind == KindUnit {
			sub = document.NewMap()
		} else {
			sub = document.NewArray()
		}
		// Empty sub-documents are discarded.
		if m.CheckChanges(sub, c) {
			emitDiff(out, c.node.name, sub)
			changed = true
		}
	}
	return changed
}

// checkPrimitive compares one field against the mirror, refreshes the
// mirror when the change clears the field's hysteresis, and appends the
// new value into out.
func (m *Mirror) checkPrimitive(out document.Value, at *MirrorNode) bool {
	n := at.node
	share, ok := m.shared.valueScalar(n, true)
	if !ok {
		return false
	}
	local, _ := loadScalarMem(m.buf, n)

	var v document.Value
	switch n.kind {
	case KindF64:
		h := float64(at.hysteresis) / 100.0
		if share.f > local.f+h || share.f < local.f-h {
			v = document.NewDoubleWithPrecision(share.f, n.precision)
		}
	case KindI64, KindI32, KindI16, KindI8:
		h := int64(at.hysteresis)
		if share.i > local.i+h || share.i < local.i-h {
			v = document.NewInteger(share.i)
		}
	case KindBool:
		if share.b != local.b {
			v = document.NewBoolean(share.b)
		}
	case KindFixedStr:
		if share.s != local.s {
			v = document.NewString(share.s)
		}
	}
	if v == nil {
		return false
	}
	storeScalarMem(m.buf, n, share)
	emitDiff(out, n.name, v)
	return true
}

func emitDiff(out document.Value, name string, v document.Value) {
	switch o := out.(type) {
	case *document.Map:
		o.Append(name, v)
	case *document.Array:
		o.Append(v)
	}
}

// CheckChangesPath is CheckChanges rooted at a resolved path.
func (m *Mirror) CheckChangesPath(path string, out document.Value) bool {
	at := m.Resolve(path)
	if at == nil {
		return false
	}
	return m.CheckChanges(out, at)
}

// Update refreshes the mirror from shared state for the subtree without
// emitting a diff. nil means the whole tree.
func (m *Mirror) Update(at *MirrorNode) {
	if at == nil {
		at = m.root
	}
	n := at.node
	if n.IsComposite() {
		for _, c := range at.subs {
			m.Update(c)
		}
		return
	}
	m.shared.Lock(n)
	copy(m.buf[n.dataOff:n.dataOff+n.size], m.shared.mem[n.dataOff:n.dataOff+n.size])
	m.shared.Unlock(n)
}

// UpdatePath is Update rooted at a resolved path.
func (m *Mirror) UpdatePath(path string) {
	if at := m.Resolve(path); at != nil {
		m.Update(at)
	}
}
