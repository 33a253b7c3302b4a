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
	"github.com/golang/glog"

	"github.com/Hertig-family/shmobj/document"
)

// ToDocument materializes a subtree as a document: units become maps,
// arrays become sequences, primitives become typed scalars. Each primitive
// is read under its own lock; the subtree is not frozen as a whole.
func (o *SharedObject) ToDocument(n *Node) document.Value {
	if n == nil {
		n = o.root
	}
	switch n.kind {
	case KindUnit:
		m := document.NewMap()
		for _, c := range n.children {
			m.Append(c.name, o.ToDocument(c))
		}
		return m
	case KindArray:
		a := document.NewArray()
		for _, c := range n.children {
			a.Append(o.ToDocument(c))
		}
		return a
	}

	sc, ok := o.valueScalar(n, true)
	if !ok {
		return nil
	}
	switch n.kind {
	case KindF64:
		return document.NewDoubleWithPrecision(sc.f, n.precision)
	case KindI64, KindI32, KindI16, KindI8:
		return document.NewInteger(sc.i)
	case KindBool:
		return document.NewBoolean(sc.b)
	case KindFixedStr:
		return document.NewString(sc.s)
	}
	return nil
}

// UpdateFromDocument walks the document and the subtree in lockstep and
// writes every matching primitive through the coercion rules. Map keys
// match children by exact name; arrays match positionally up to the
// shorter length. Fields that do not match are logged and skipped; the
// result is true when at least one field was written.
func (o *SharedObject) UpdateFromDocument(n *Node, doc document.Value, protect bool) bool {
	if n == nil {
		n = o.root
	}
	switch n.kind {
	case KindUnit:
		m, ok := doc.(*document.Map)
		if !ok {
			glog.Warningf("segment %s: update of unit %s needs a map document", o.segName, n.name)
			return false
		}
		any := false
		for _, key := range m.Keys() {
			child := n.Child(key)
			if child == nil {
				glog.Warningf("segment %s: update: unit %s has no field %q", o.segName, n.name, key)
				continue
			}
			if o.UpdateFromDocument(child, m.FindElement(key), protect) {
				any = true
			}
		}
		return any
	case KindArray:
		a, ok := doc.(*document.Array)
		if !ok {
			glog.Warningf("segment %s: update of array %s needs an array document", o.segName, n.name)
			return false
		}
		count := a.Len()
		if count > len(n.children) {
			count = len(n.children)
		}
		any := false
		for i := 0; i < count; i++ {
			if o.UpdateFromDocument(n.children[i], a.At(i), protect) {
				any = true
			}
		}
		return any
	}

	sc, ok := scalarFromDocument(doc)
	if !ok {
		glog.Warningf("segment %s: update: field %s given a non-scalar document", o.segName, n.name)
		return false
	}
	return o.updateScalar(n, sc, protect)
}

// SyncFromShared overwrites the scalars of an existing document shape with
// the current shared values, walking the document and subtree in lockstep.
// Reports whether any scalar changed.
func (o *SharedObject) SyncFromShared(doc document.Value, n *Node) bool {
	if n == nil {
		n = o.root
	}
	switch d := doc.(type) {
	case *document.Map:
		if n.kind != KindUnit {
			return false
		}
		changed := false
		for _, key := range d.Keys() {
			child := n.Child(key)
			if child == nil {
				continue
			}
			if o.SyncFromShared(d.FindElement(key), child) {
				changed = true
			}
		}
		return changed
	case *document.Array:
		if n.kind != KindArray {
			return false
		}
		count := d.Len()
		if count > len(n.children) {
			count = len(n.children)
		}
		changed := false
		for i := 0; i < count; i++ {
			if o.SyncFromShared(d.At(i), n.children[i]) {
				changed = true
			}
		}
		return changed
	}

	sc, ok := o.valueScalar(n, true)
	if !ok {
		return false
	}
	switch d := doc.(type) {
	case *document.Integer:
		if v := scalarToInt(sc); v != d.Value() {
			d.Set(v)
			return true
		}
	case *document.Double:
		if v := scalarToFloat(sc); v != d.Value() {
			d.Set(v)
			return true
		}
	case *document.Boolean:
		if v := scalarToBool(sc); v != d.Value() {
			d.Set(v)
			return true
		}
	case *document.String:
		if v := scalarToString(sc, n.precision); v != d.Value() {
			d.Set(v)
			return true
		}
	}
	return false
}
