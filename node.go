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
	"sort"

	"github.com/Hertig-family/shmobj/document"
)

// Node is the runtime descriptor of one schema element. The tree is built
// once at attach time and never mutated afterwards.
type Node struct {
	kind Kind
	name string

	// dataOff is the byte offset of the value in the payload. Zero for
	// composites.
	dataOff uint32
	// size is the value width in bytes. For KindFixedStr it is the full
	// buffer capacity including the reserved terminator byte.
	size uint32
	// timeOff is the byte offset of the 64-bit update-timestamp slot.
	timeOff uint32

	// semIdx numbers the subtree semaphore. Composites own a semaphore;
	// primitives share their enclosing composite's.
	semIdx int

	children []*Node
	lookup   []lookupEntry

	// schema points back at the document entry that defined this node.
	schema     *document.Map
	hysteresis uint32
	precision  int
}

// lookupEntry maps the minimal disambiguating prefix of a child name to the
// child. Entries are sorted by full name.
type lookupEntry struct {
	prefix string
	name   string
	child  *Node
}

// Kind returns the node's storage class.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the schema key that defined the node.
func (n *Node) Name() string { return n.name }

// DataOffset returns the payload byte offset of the value. Composites
// return 0.
func (n *Node) DataOffset() uint32 { return n.dataOff }

// FixedSize returns the value width in bytes.
func (n *Node) FixedSize() uint32 { return n.size }

// TimeOffset returns the byte offset of the update-timestamp slot.
func (n *Node) TimeOffset() uint32 { return n.timeOff }

// IsComposite reports whether the node is a Unit or Array.
func (n *Node) IsComposite() bool { return n.kind.IsComposite() }

// NumSubs returns the number of children.
func (n *Node) NumSubs() int { return len(n.children) }

// Children returns the node's children in sorted (Unit) or index (Array)
// order. The slice is shared; callers must not modify it.
func (n *Node) Children() []*Node { return n.children }

// Child returns the child with exactly the given name, or nil.
func (n *Node) Child(name string) *Node {
	if n.kind == KindArray {
		// Array children are in index order, not name order.
		for _, c := range n.children {
			if c.name == name {
				return c
			}
		}
		return nil
	}
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].name >= name
	})
	if i < len(n.children) && n.children[i].name == name {
		return n.children[i]
	}
	return nil
}

// Hysteresis returns the schema's change threshold for the node, 0 when
// none was declared.
func (n *Node) Hysteresis() uint32 { return n.hysteresis }

// buildLookup computes each child's minimal disambiguating prefix: the run
// of characters shared with its nearest sorted neighbours plus one more.
// children must already be sorted by name.
func buildLookup(children []*Node) []lookupEntry {
	entries := make([]lookupEntry, len(children))
	for i, c := range children {
		run := 0
		if i > 0 {
			run = commonRun(c.name, children[i-1].name)
		}
		if i+1 < len(children) {
			if r := commonRun(c.name, children[i+1].name); r > run {
				run = r
			}
		}
		if run >= len(c.name) {
			run = len(c.name) - 1
		}
		entries[i] = lookupEntry{prefix: c.name[:run+1], name: c.name, child: c}
	}
	return entries
}

func commonRun(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// findChild resolves one path segment against the lookup index: binary
// search for the entry whose prefix starts the segment, then verify the
// full name. A segment that is a strict prefix of a child name is not a
// match.
func (n *Node) findChild(head string) *Node {
	i := sort.Search(len(n.lookup), func(i int) bool {
		return n.lookup[i].name >= head
	})
	if i >= len(n.lookup) {
		return nil
	}
	e := &n.lookup[i]
	if len(head) < len(e.prefix) || head[:len(e.prefix)] != e.prefix {
		return nil
	}
	if e.name != head {
		return nil
	}
	return e.child
}
