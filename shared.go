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
	"math/rand"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/glog"

	"github.com/Hertig-family/shmobj/document"
)

// Options tunes segment placement and the attach handshake. The zero value
// of every field selects a default.
type Options struct {
	// BaseDir is the directory holding the segment and semaphore files.
	// Defaults to /dev/shm when available, the temp directory otherwise.
	BaseDir string

	// SemPrefix names the semaphore files (<prefix>_init, <prefix>_0,
	// <prefix>_1, ...). Defaults to "sem_" plus a hash of the segment
	// name, so attachers of one segment agree on the names while two
	// segments opened by one process stay disjoint.
	SemPrefix string

	// InitTimeout bounds the wait for another attacher's in-flight
	// initialization. Defaults to 400ms.
	InitTimeout time.Duration

	// OnInit, when set, is invoked after this attacher initialized a
	// fresh segment with the schema defaults.
	OnInit func(*SharedObject)
}

func fillOptions(segmentName string, opts *Options) Options {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.BaseDir == "" {
		o.BaseDir = defaultBaseDir()
	}
	if o.SemPrefix == "" {
		o.SemPrefix = fmt.Sprintf("sem_%x", xxhash.Sum64String(segmentName))
	}
	if o.InitTimeout == 0 {
		o.InitTimeout = 400 * time.Millisecond
	}
	return o
}

// SharedObject is an attached, schema-defined shared memory store. It owns
// the mapping and the semaphore handles for its lifetime.
type SharedObject struct {
	root    *Node
	size    uint32
	nPrims  int
	segName string
	path    string
	opts    Options

	mem  []byte
	file *os.File

	sems    []*sem
	initSem *sem

	initialized bool
}

// New compiles the schema document, creates or attaches the named segment,
// and runs the one-shot initialization handshake. Exactly one attacher
// writes the schema defaults into a fresh or invalid segment.
func New(def *document.Map, segmentName string, opts *Options) (*SharedObject, error) {
	lay, err := compileSchema(def)
	if err != nil {
		return nil, err
	}
	o := &SharedObject{
		root:    lay.root,
		size:    lay.size,
		nPrims:  lay.nPrims,
		segName: segmentName,
		opts:    fillOptions(segmentName, opts),
	}
	o.path = segmentPath(o.opts.BaseDir, segmentName)

	file, err := openSegmentFile(o.path, o.size)
	if err != nil {
		return nil, err
	}
	o.file = file
	mem, err := mmapFile(file, int(o.size))
	if err != nil {
		file.Close()
		return nil, err
	}
	o.mem = mem

	if err := o.openSems(lay.nSems); err != nil {
		o.Close()
		return nil, err
	}
	if err := o.attach(); err != nil {
		o.Close()
		return nil, err
	}
	if o.initialized && o.opts.OnInit != nil {
		o.opts.OnInit(o)
	}
	return o, nil
}

// NewFromFile parses a schema document from a file and attaches.
func NewFromFile(configPath, segmentName string, opts *Options) (*SharedObject, error) {
	doc, err := document.ParseFile(configPath)
	if err != nil {
		return nil, err
	}
	def, ok := doc.(*document.Map)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not hold a map", ErrSchemaInvalid, configPath)
	}
	return New(def, segmentName, opts)
}

// openSems opens the init semaphore and one semaphore per composite, in the
// tree's pre-order visit order so every attacher binds the same names.
func (o *SharedObject) openSems(n int) error {
	initSem, err := openSem(o.opts.BaseDir, o.opts.SemPrefix+"_init")
	if err != nil {
		return err
	}
	o.initSem = initSem
	o.sems = make([]*sem, n)
	for i := 0; i < n; i++ {
		s, err := openSem(o.opts.BaseDir, fmt.Sprintf("%s_%d", o.opts.SemPrefix, i))
		if err != nil {
			return err
		}
		o.sems[i] = s
	}
	return nil
}

// attach inspects the validity byte and either accepts the existing
// payload or initializes it.
func (o *SharedObject) attach() error {
	if o.mem[validityOffset] == markerValid {
		if err := validateHeader(o.mem[:headerSize]); err == nil {
			return nil
		} else {
			glog.Warningf("segment %s: %v; reinitializing", o.segName, err)
		}
	}

	if o.mem[validityOffset] == markerInitializing {
		// Another attacher is writing defaults. Give it a moment, then
		// wait out its hold on the init semaphore.
		time.Sleep(time.Millisecond)
		switch err := o.initSem.acquireTimeout(o.opts.InitTimeout); err {
		case nil:
			o.initSem.release()
		case errSemTimeout:
			glog.Warningf("segment %s: %v", o.segName, ErrInitTimeout)
		default:
			return err
		}
		if o.mem[validityOffset] == markerValid {
			if err := validateHeader(o.mem[:headerSize]); err == nil {
				return nil
			}
			glog.Warningf("segment %s: %v after initialization wait; reinitializing", o.segName, ErrSegmentCorrupt)
		}
	}

	// Initializer path. Hold the init semaphore while defaulting so the
	// timed wait above means something; a second racer blocks here and
	// finds the valid header on wake.
	held := o.initSem.tryAcquire()
	if !held {
		switch err := o.initSem.acquireTimeout(o.opts.InitTimeout); err {
		case nil:
			held = true
			if o.mem[validityOffset] == markerValid && validateHeader(o.mem[:headerSize]) == nil {
				o.initSem.release()
				return nil
			}
		case errSemTimeout:
			glog.Warningf("segment %s: init semaphore stuck; initializing anyway", o.segName)
		default:
			return err
		}
	}

	o.initialize()
	if held {
		o.initSem.release()
	}
	o.initialized = true
	glog.V(1).Infof("segment %s: initialized %d bytes, %d primitives", o.segName, o.size, o.nPrims)
	return nil
}

// initialize writes the defaults and the validity header. The marker byte
// is flipped to valid only after everything else is in place.
func (o *SharedObject) initialize() {
	o.mem[validityOffset] = markerInitializing
	for i := uint32(timestampBase); i < o.size; i++ {
		o.mem[i] = 0
	}
	o.writeDefaults(o.root)
	fillHeader(o.mem[:headerSize], rand.New(rand.NewSource(time.Now().UnixNano())))
	o.mem[validityOffset] = markerValid
}

func (o *SharedObject) writeDefaults(n *Node) {
	if n.IsComposite() {
		for _, c := range n.children {
			o.writeDefaults(c)
		}
		return
	}
	d := n.schema.FindCaseElement("defaultValue")
	sc, ok := scalarFromDocument(d)
	if !ok {
		glog.Errorf("segment %s: field %s has a non-scalar defaultValue", o.segName, n.name)
		return
	}
	o.rawStore(n, sc)
}

// Initialized reports whether this attacher wrote the defaults.
func (o *SharedObject) Initialized() bool { return o.initialized }

// Root returns the root of the node tree.
func (o *SharedObject) Root() *Node { return o.root }

// Size returns the payload size in bytes.
func (o *SharedObject) Size() uint32 { return o.size }

// NumPrimitives returns the number of primitive fields in the schema.
func (o *SharedObject) NumPrimitives() int { return o.nPrims }

// SegmentName returns the name the segment was attached under.
func (o *SharedObject) SegmentName() string { return o.segName }

// Close releases the semaphore handles and the mapping. The segment file is
// not unlinked; the store outlives any single attacher.
func (o *SharedObject) Close() error {
	for _, s := range o.sems {
		if s != nil {
			s.close()
		}
	}
	o.sems = nil
	if o.initSem != nil {
		o.initSem.close()
		o.initSem = nil
	}
	var err error
	if o.mem != nil {
		err = unmapMemory(o.mem)
		o.mem = nil
	}
	if o.file != nil {
		if cerr := o.file.Close(); err == nil {
			err = cerr
		}
		o.file = nil
	}
	return err
}
