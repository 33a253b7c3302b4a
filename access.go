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
	"encoding/base64"

	"github.com/golang/glog"

	"github.com/Hertig-family/shmobj/document"
)

// Lock acquires the subtree semaphore governing the node. Callers use it to
// amortize many protect=false accesses under one hold. Never hold two
// subtree locks at once.
func (o *SharedObject) Lock(n *Node) {
	if n == nil {
		n = o.root
	}
	if err := o.sems[n.semIdx].acquire(); err != nil {
		glog.Errorf("segment %s: lock %s: %v", o.segName, n.name, err)
	}
}

// Unlock releases the subtree semaphore governing the node.
func (o *SharedObject) Unlock(n *Node) {
	if n == nil {
		n = o.root
	}
	o.sems[n.semIdx].release()
}

// valueScalar reads a primitive under its subtree lock when protect is set.
func (o *SharedObject) valueScalar(n *Node, protect bool) (scalar, bool) {
	if n == nil || n.IsComposite() {
		return scalar{}, false
	}
	if protect {
		o.Lock(n)
		defer o.Unlock(n)
	}
	return o.rawLoad(n)
}

// updateScalar coerces sc into the node's storage, writes it, and stamps
// the update time.
func (o *SharedObject) updateScalar(n *Node, sc scalar, protect bool) bool {
	if n == nil || n.IsComposite() {
		return false
	}
	if protect {
		o.Lock(n)
		defer o.Unlock(n)
	}
	if !o.rawStore(n, sc) {
		glog.Warningf("segment %s: cannot store %s into %s field %s", o.segName, sc.kind, n.kind, n.name)
		return false
	}
	o.stamp(n)
	return true
}

// Float64Value returns the node's value coerced to float64.
func (o *SharedObject) Float64Value(n *Node, protect bool) (float64, bool) {
	sc, ok := o.valueScalar(n, protect)
	if !ok {
		return 0, false
	}
	return scalarToFloat(sc), true
}

// Int64Value returns the node's value coerced to int64.
func (o *SharedObject) Int64Value(n *Node, protect bool) (int64, bool) {
	sc, ok := o.valueScalar(n, protect)
	if !ok {
		return 0, false
	}
	return scalarToInt(sc), true
}

// Int32Value returns the node's value coerced to int32.
func (o *SharedObject) Int32Value(n *Node, protect bool) (int32, bool) {
	v, ok := o.Int64Value(n, protect)
	return int32(v), ok
}

// Int16Value returns the node's value coerced to int16.
func (o *SharedObject) Int16Value(n *Node, protect bool) (int16, bool) {
	v, ok := o.Int64Value(n, protect)
	return int16(v), ok
}

// Int8Value returns the node's value coerced to int8.
func (o *SharedObject) Int8Value(n *Node, protect bool) (int8, bool) {
	v, ok := o.Int64Value(n, protect)
	return int8(v), ok
}

// BoolValue returns the node's value coerced to bool.
func (o *SharedObject) BoolValue(n *Node, protect bool) (bool, bool) {
	sc, ok := o.valueScalar(n, protect)
	if !ok {
		return false, false
	}
	return scalarToBool(sc), true
}

// StringValue returns the node's value rendered to text.
func (o *SharedObject) StringValue(n *Node, protect bool) (string, bool) {
	sc, ok := o.valueScalar(n, protect)
	if !ok {
		return "", false
	}
	return scalarToString(sc, n.precision), true
}

// ReadFloat64 resolves a path from the root and reads it as float64.
func (o *SharedObject) ReadFloat64(path string, protect bool) (float64, bool) {
	return o.Float64Value(o.Resolve(path), protect)
}

// ReadFloat64At is ReadFloat64 rooted at base.
func (o *SharedObject) ReadFloat64At(base *Node, path string, protect bool) (float64, bool) {
	return o.Float64Value(o.ResolveAt(base, path), protect)
}

// ReadInt64 resolves a path from the root and reads it as int64.
func (o *SharedObject) ReadInt64(path string, protect bool) (int64, bool) {
	return o.Int64Value(o.Resolve(path), protect)
}

// ReadInt64At is ReadInt64 rooted at base.
func (o *SharedObject) ReadInt64At(base *Node, path string, protect bool) (int64, bool) {
	return o.Int64Value(o.ResolveAt(base, path), protect)
}

// ReadInt32 resolves a path from the root and reads it as int32.
func (o *SharedObject) ReadInt32(path string, protect bool) (int32, bool) {
	return o.Int32Value(o.Resolve(path), protect)
}

// ReadInt32At is ReadInt32 rooted at base.
func (o *SharedObject) ReadInt32At(base *Node, path string, protect bool) (int32, bool) {
	return o.Int32Value(o.ResolveAt(base, path), protect)
}

// ReadInt16 resolves a path from the root and reads it as int16.
func (o *SharedObject) ReadInt16(path string, protect bool) (int16, bool) {
	return o.Int16Value(o.Resolve(path), protect)
}

// ReadInt16At is ReadInt16 rooted at base.
func (o *SharedObject) ReadInt16At(base *Node, path string, protect bool) (int16, bool) {
	return o.Int16Value(o.ResolveAt(base, path), protect)
}

// ReadInt8 resolves a path from the root and reads it as int8.
func (o *SharedObject) ReadInt8(path string, protect bool) (int8, bool) {
	return o.Int8Value(o.Resolve(path), protect)
}

// ReadInt8At is ReadInt8 rooted at base.
func (o *SharedObject) ReadInt8At(base *Node, path string, protect bool) (int8, bool) {
	return o.Int8Value(o.ResolveAt(base, path), protect)
}

// ReadBool resolves a path from the root and reads it as bool.
func (o *SharedObject) ReadBool(path string, protect bool) (bool, bool) {
	return o.BoolValue(o.Resolve(path), protect)
}

// ReadBoolAt is ReadBool rooted at base.
func (o *SharedObject) ReadBoolAt(base *Node, path string, protect bool) (bool, bool) {
	return o.BoolValue(o.ResolveAt(base, path), protect)
}

// ReadString resolves a path from the root and reads it as text.
func (o *SharedObject) ReadString(path string, protect bool) (string, bool) {
	return o.StringValue(o.Resolve(path), protect)
}

// ReadStringAt is ReadString rooted at base.
func (o *SharedObject) ReadStringAt(base *Node, path string, protect bool) (string, bool) {
	return o.StringValue(o.ResolveAt(base, path), protect)
}

// UpdateFloat64 writes v into the node, coerced to the node's kind, and
// stamps its update time.
func (o *SharedObject) UpdateFloat64(n *Node, v float64, protect bool) bool {
	return o.updateScalar(n, floatScalar(v), protect)
}

// UpdateInt64 writes v into the node, coerced to the node's kind.
func (o *SharedObject) UpdateInt64(n *Node, v int64, protect bool) bool {
	return o.updateScalar(n, intScalar(v), protect)
}

// UpdateInt32 writes v into the node, coerced to the node's kind.
func (o *SharedObject) UpdateInt32(n *Node, v int32, protect bool) bool {
	return o.updateScalar(n, intScalar(int64(v)), protect)
}

// UpdateInt16 writes v into the node, coerced to the node's kind.
func (o *SharedObject) UpdateInt16(n *Node, v int16, protect bool) bool {
	return o.updateScalar(n, intScalar(int64(v)), protect)
}

// UpdateInt8 writes v into the node, coerced to the node's kind.
func (o *SharedObject) UpdateInt8(n *Node, v int8, protect bool) bool {
	return o.updateScalar(n, intScalar(int64(v)), protect)
}

// UpdateBool writes v into the node, coerced to the node's kind.
func (o *SharedObject) UpdateBool(n *Node, v bool, protect bool) bool {
	return o.updateScalar(n, boolScalar(v), protect)
}

// UpdateString writes v into the node, parsed or copied per the node's
// kind. Text longer than a string field's capacity is truncated to
// capacity-1 bytes.
func (o *SharedObject) UpdateString(n *Node, v string, protect bool) bool {
	return o.updateScalar(n, stringScalar(v), protect)
}

// Update dispatches on the dynamic type of v: Go scalars write through the
// coercion rules, document values apply composite updates.
func (o *SharedObject) Update(n *Node, v any, protect bool) bool {
	switch t := v.(type) {
	case float64:
		return o.UpdateFloat64(n, t, protect)
	case float32:
		return o.UpdateFloat64(n, float64(t), protect)
	case int:
		return o.UpdateInt64(n, int64(t), protect)
	case int64:
		return o.UpdateInt64(n, t, protect)
	case int32:
		return o.UpdateInt32(n, t, protect)
	case int16:
		return o.UpdateInt16(n, t, protect)
	case int8:
		return o.UpdateInt8(n, t, protect)
	case uint64:
		return o.UpdateInt64(n, int64(t), protect)
	case uint32:
		return o.UpdateInt64(n, int64(t), protect)
	case bool:
		return o.UpdateBool(n, t, protect)
	case string:
		return o.UpdateString(n, t, protect)
	case document.Value:
		return o.UpdateFromDocument(n, t, protect)
	}
	glog.Warningf("segment %s: Update: unsupported value type %T", o.segName, v)
	return false
}

// ReadBase64String returns a string field's full fixed buffer encoded as
// base64, for binary payloads carried in string fields.
func (o *SharedObject) ReadBase64String(n *Node, protect bool) (string, bool) {
	if n == nil || n.kind != KindFixedStr {
		return "", false
	}
	if protect {
		o.Lock(n)
		defer o.Unlock(n)
	}
	return base64.StdEncoding.EncodeToString(o.mem[n.dataOff : n.dataOff+n.size]), true
}

// Equals reports whether a document structurally matches the shared state
// of the subtree: every document entry resolves to a node and compares
// equal after coercion.
func (o *SharedObject) Equals(doc document.Value, n *Node) bool {
	if n == nil {
		n = o.root
	}
	switch n.kind {
	case KindUnit:
		m, ok := doc.(*document.Map)
		if !ok {
			return false
		}
		for _, key := range m.Keys() {
			child := n.Child(key)
			if child == nil || !o.Equals(m.FindElement(key), child) {
				return false
			}
		}
		return true
	case KindArray:
		a, ok := doc.(*document.Array)
		if !ok || a.Len() > len(n.children) {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !o.Equals(a.At(i), n.children[i]) {
				return false
			}
		}
		return true
	}

	sc, ok := o.valueScalar(n, true)
	if !ok {
		return false
	}
	switch n.kind {
	case KindF64:
		return document.IsNumber(doc) && document.ToDouble(doc) == scalarToFloat(sc)
	case KindI64, KindI32, KindI16, KindI8:
		return document.IsNumber(doc) && document.ToLong(doc) == scalarToInt(sc)
	case KindBool:
		return document.IsBoolean(doc) && document.ToBool(doc) == scalarToBool(sc)
	case KindFixedStr:
		return document.IsString(doc) && document.Str(doc) == sc.s
	}
	return false
}
