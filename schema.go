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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Hertig-family/shmobj/document"
)

const (
	defaultIntSize = 4
	defaultStrSize = 16
	defaultPrec    = 6

	// maxSchemaDepth bounds the compile walk so a document with shared
	// subtrees cannot recurse unboundedly.
	maxSchemaDepth = 64
)

// Storage classes in payload order. Timestamps precede classF64.
const (
	classF64 = iota
	classI64
	classI32
	classI16
	class8Bit
	classStr
	numClasses
)

func classOf(k Kind) int {
	switch k {
	case KindF64:
		return classF64
	case KindI64:
		return classI64
	case KindI32:
		return classI32
	case KindI16:
		return classI16
	case KindI8, KindBool:
		return class8Bit
	}
	return classStr
}

// compiler assigns offsets in a single depth-first pre-order walk, then
// rewrites every primitive's data offset once the per-class region bases
// are known.
type compiler struct {
	timeCur uint32
	cur     [numClasses]uint32
	prims   []*Node
	nSems   int
}

type layout struct {
	root   *Node
	size   uint32
	nPrims int
	nSems  int
}

// compileSchema builds the node tree and computes the payload size.
func compileSchema(def *document.Map) (*layout, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: schema document is not a map", ErrSchemaInvalid)
	}
	c := &compiler{timeCur: timestampBase}
	root, err := c.walkUnit(def, "", 0)
	if err != nil {
		return nil, err
	}

	// Region base fix-up: timestamps, F64, I64, I32, I16, 8-bit, FixedStr.
	var base [numClasses]uint32
	off := c.timeCur
	for cl := 0; cl < numClasses; cl++ {
		base[cl] = off
		off += c.cur[cl]
	}
	for _, p := range c.prims {
		p.dataOff += base[classOf(p.kind)]
	}

	return &layout{root: root, size: off, nPrims: len(c.prims), nSems: c.nSems}, nil
}

func (c *compiler) walkUnit(def *document.Map, name string, depth int) (*Node, error) {
	if depth > maxSchemaDepth {
		return nil, fmt.Errorf("%w: schema nesting exceeds %d levels at %q", ErrSchemaInvalid, maxSchemaDepth, name)
	}
	n := &Node{kind: KindUnit, name: name, schema: def, semIdx: c.nSems}
	c.nSems++

	var names []string
	for _, key := range def.Keys() {
		if document.IsMap(def.FindElement(key)) {
			names = append(names, key)
		}
	}
	sort.Strings(names)

	for _, key := range names {
		child, err := c.walkEntry(def.FindElement(key).(*document.Map), key, n.semIdx, depth+1)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	n.lookup = buildLookup(n.children)
	return n, nil
}

func (c *compiler) walkArray(def *document.Map, name string, depth int) (*Node, error) {
	if depth > maxSchemaDepth {
		return nil, fmt.Errorf("%w: schema nesting exceeds %d levels at %q", ErrSchemaInvalid, maxSchemaDepth, name)
	}
	n := &Node{kind: KindArray, name: name, schema: def, semIdx: c.nSems}
	c.nSems++

	count := 0
	for _, key := range def.Keys() {
		if document.IsMap(def.FindElement(key)) {
			count++
		}
	}
	for i := 0; i < count; i++ {
		key := strconv.Itoa(i)
		spec, ok := def.FindElement(key).(*document.Map)
		if !ok || spec == nil {
			return nil, fmt.Errorf("%w: array %q children must be numbered 0..%d, missing %q", ErrSchemaInvalid, name, count-1, key)
		}
		child, err := c.walkEntry(spec, key, n.semIdx, depth+1)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	n.lookup = buildLookup(n.children)
	return n, nil
}

// walkEntry dispatches one schema entry by its type key. An entry without a
// type is a unit.
func (c *compiler) walkEntry(spec *document.Map, name string, parentSem int, depth int) (*Node, error) {
	typ := typeUnit
	if s, ok := spec.FindCaseElement("type").(*document.String); ok {
		typ = strings.ToLower(s.Value())
	}
	switch typ {
	case typeUnit:
		return c.walkUnit(spec, name, depth)
	case typeArray:
		return c.walkArray(spec, name, depth)
	case typeInt, typeFloat, typeString, typeBool:
		return c.walkPrimitive(spec, name, typ, parentSem)
	}
	return nil, fmt.Errorf("%w: field %q has unknown type %q", ErrSchemaInvalid, name, typ)
}

func (c *compiler) walkPrimitive(spec *document.Map, name, typ string, parentSem int) (*Node, error) {
	if spec.FindCaseElement("defaultValue") == nil {
		return nil, fmt.Errorf("%w: field %q has no defaultValue", ErrSchemaInvalid, name)
	}
	n := &Node{name: name, schema: spec, semIdx: parentSem, precision: defaultPrec}

	if h := spec.FindCaseElement("hysteresis"); document.IsNumber(h) {
		n.hysteresis = uint32(document.ToInt(h))
	}
	if p := spec.FindCaseElement("precision"); document.IsNumber(p) {
		n.precision = document.ToInt(p)
	}

	switch typ {
	case typeInt:
		sz := defaultIntSize
		if e := spec.FindCaseElement("size"); e != nil {
			if !document.IsNumber(e) {
				return nil, fmt.Errorf("%w: field %q has a non-numeric int size", ErrSchemaInvalid, name)
			}
			sz = document.ToInt(e)
		}
		switch sz {
		case 1:
			n.kind = KindI8
		case 2:
			n.kind = KindI16
		case 4:
			n.kind = KindI32
		case 8:
			n.kind = KindI64
		default:
			return nil, fmt.Errorf("%w: field %q has int size %d, want 1, 2, 4 or 8", ErrSchemaInvalid, name, sz)
		}
		n.size = n.kind.width()
	case typeFloat:
		n.kind = KindF64
		n.size = n.kind.width()
	case typeBool:
		n.kind = KindBool
		n.size = 1
	case typeString:
		sz := defaultStrSize
		if e := spec.FindCaseElement("size"); e != nil {
			if !document.IsNumber(e) || document.ToInt(e) < 1 {
				return nil, fmt.Errorf("%w: field %q has an invalid string size", ErrSchemaInvalid, name)
			}
			sz = document.ToInt(e)
		}
		n.kind = KindFixedStr
		n.size = uint32(sz)
	}

	n.timeOff = c.timeCur
	c.timeCur += 8
	cl := classOf(n.kind)
	n.dataOff = c.cur[cl]
	c.cur[cl] += n.size
	c.prims = append(c.prims, n)
	return n, nil
}
