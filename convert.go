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
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/Hertig-family/shmobj/document"
)

// scalar is a primitive value in one of four canonical carriers: float,
// integer, boolean, or text. Accessors load a node into a scalar and coerce
// it to the requested type, and the reverse on writes.
type scalar struct {
	kind Kind // KindF64, KindI64, KindBool or KindFixedStr
	f    float64
	i    int64
	b    bool
	s    string
}

func floatScalar(f float64) scalar { return scalar{kind: KindF64, f: f} }
func intScalar(i int64) scalar     { return scalar{kind: KindI64, i: i} }
func boolScalar(b bool) scalar     { return scalar{kind: KindBool, b: b} }
func stringScalar(s string) scalar { return scalar{kind: KindFixedStr, s: s} }

// scalarFromDocument maps a document scalar into a scalar carrier.
func scalarFromDocument(v document.Value) (scalar, bool) {
	switch t := v.(type) {
	case *document.Double:
		return floatScalar(t.Value()), true
	case *document.Integer:
		return intScalar(t.Value()), true
	case *document.Boolean:
		return boolScalar(t.Value()), true
	case *document.String:
		return stringScalar(t.Value()), true
	}
	return scalar{}, false
}

// rawLoad reads a primitive node's stored value without locking.
func (o *SharedObject) rawLoad(n *Node) (scalar, bool) {
	return loadScalarMem(o.mem, n)
}

// rawStore coerces sc into the node's storage kind and writes it without
// locking or timestamping.
func (o *SharedObject) rawStore(n *Node, sc scalar) bool {
	return storeScalarMem(o.mem, n, sc)
}

// loadScalarMem reads a primitive's value from a payload buffer, either the
// shared mapping or a mirror's private copy; the offsets are the same.
func loadScalarMem(mem []byte, n *Node) (scalar, bool) {
	off := n.dataOff
	switch n.kind {
	case KindF64:
		return floatScalar(math.Float64frombits(binary.LittleEndian.Uint64(mem[off:]))), true
	case KindI64:
		return intScalar(int64(binary.LittleEndian.Uint64(mem[off:]))), true
	case KindI32:
		return intScalar(int64(int32(binary.LittleEndian.Uint32(mem[off:])))), true
	case KindI16:
		return intScalar(int64(int16(binary.LittleEndian.Uint16(mem[off:])))), true
	case KindI8:
		return intScalar(int64(int8(mem[off]))), true
	case KindBool:
		return boolScalar(mem[off] != 0), true
	case KindFixedStr:
		return stringScalar(cStr(mem[off : off+n.size])), true
	}
	return scalar{}, false
}

// storeScalarMem coerces sc into the node's storage kind and writes it into
// a payload buffer.
func storeScalarMem(mem []byte, n *Node, sc scalar) bool {
	off := n.dataOff
	switch n.kind {
	case KindF64:
		binary.LittleEndian.PutUint64(mem[off:], math.Float64bits(scalarToFloat(sc)))
	case KindI64:
		binary.LittleEndian.PutUint64(mem[off:], uint64(scalarToInt(sc)))
	case KindI32:
		binary.LittleEndian.PutUint32(mem[off:], uint32(scalarToInt(sc)))
	case KindI16:
		binary.LittleEndian.PutUint16(mem[off:], uint16(scalarToInt(sc)))
	case KindI8:
		mem[off] = uint8(scalarToInt(sc))
	case KindBool:
		// True stores 0xFF; every reader compares against zero.
		if scalarToBool(sc) {
			mem[off] = 0xFF
		} else {
			mem[off] = 0x00
		}
	case KindFixedStr:
		putCStr(mem[off:off+n.size], scalarToString(sc, n.precision))
	default:
		return false
	}
	return true
}

// cStr returns the bytes up to the first NUL as a string.
func cStr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// putCStr copies s into a fixed buffer, truncating to len(buf)-1 so the
// terminator byte always fits, and zero-fills the remainder.
func putCStr(buf []byte, s string) {
	n := copy(buf[:len(buf)-1], s)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}

func scalarToFloat(sc scalar) float64 {
	switch sc.kind {
	case KindF64:
		return sc.f
	case KindI64:
		return float64(sc.i)
	case KindBool:
		if sc.b {
			return 1
		}
		return 0
	case KindFixedStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(sc.s), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// scalarToInt narrows floats by rounding to nearest and parses text with
// automatic base detection (0x hex, leading 0 octal, else decimal).
func scalarToInt(sc scalar) int64 {
	switch sc.kind {
	case KindI64:
		return sc.i
	case KindF64:
		return int64(math.Round(sc.f))
	case KindBool:
		if sc.b {
			return 1
		}
		return 0
	case KindFixedStr:
		n, err := strconv.ParseInt(strings.TrimSpace(sc.s), 0, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// scalarToBool treats nonzero numbers as true and compares text
// case-insensitively against "true".
func scalarToBool(sc scalar) bool {
	switch sc.kind {
	case KindBool:
		return sc.b
	case KindI64:
		return sc.i != 0
	case KindF64:
		return sc.f != 0
	case KindFixedStr:
		return strings.EqualFold(strings.TrimSpace(sc.s), "true")
	}
	return false
}

// scalarToString renders floats with the target's precision, integers in
// decimal, and booleans as "True"/"False".
func scalarToString(sc scalar, precision int) string {
	switch sc.kind {
	case KindFixedStr:
		return sc.s
	case KindF64:
		return strconv.FormatFloat(sc.f, 'f', precision, 64)
	case KindI64:
		return strconv.FormatInt(sc.i, 10)
	case KindBool:
		if sc.b {
			return "True"
		}
		return "False"
	}
	return ""
}
