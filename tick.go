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
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// waitPollInterval is how often WaitForUpdate samples the timestamp slot.
const waitPollInterval = 50 * time.Microsecond

// monotonicMillis reads CLOCK_MONOTONIC as milliseconds, rounding the
// nanosecond part to the nearest millisecond. Value 0 means "never
// updated", so the stored form is never 0 after a write on any live
// system.
func monotonicMillis() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1000 + uint64(ts.Nsec+500_000)/1_000_000
}

// timeSlot returns the node's timestamp slot for atomic access. Slots are
// 8-byte aligned by layout; the mapping itself is page aligned.
func (o *SharedObject) timeSlot(n *Node) *uint64 {
	return (*uint64)(unsafe.Pointer(&o.mem[n.timeOff]))
}

// stamp records "now" in the node's timestamp slot. Timestamps are read by
// pollers without the subtree lock, so the store is atomic.
func (o *SharedObject) stamp(n *Node) {
	atomic.StoreUint64(o.timeSlot(n), monotonicMillis())
}

// TouchUpdateTime writes an explicit timestamp into a primitive's slot.
func (o *SharedObject) TouchUpdateTime(n *Node, t uint64) {
	if n == nil || n.IsComposite() {
		return
	}
	atomic.StoreUint64(o.timeSlot(n), t)
}

// UpdateTime returns a primitive's last update time, or the maximum over
// all descendants for a composite. Zero means never updated.
func (o *SharedObject) UpdateTime(n *Node) uint64 {
	if n == nil {
		n = o.root
	}
	if !n.IsComposite() {
		return atomic.LoadUint64(o.timeSlot(n))
	}
	var max uint64
	for _, c := range n.children {
		if t := o.UpdateTime(c); t > max {
			max = t
		}
	}
	return max
}

// UpdateTimeAt resolves a path and returns its update time; ok is false
// when the path does not resolve.
func (o *SharedObject) UpdateTimeAt(path string) (uint64, bool) {
	n := o.Resolve(path)
	if n == nil {
		return 0, false
	}
	return o.UpdateTime(n), true
}

// WaitForUpdate polls the subtree's update time until it exceeds start or
// the timeout expires. A zero start means "now". Returns true when an
// update was observed.
func (o *SharedObject) WaitForUpdate(n *Node, start uint64, timeout time.Duration) bool {
	if n == nil {
		return false
	}
	now := monotonicMillis()
	if start == 0 {
		start = now
	}
	deadline := now + uint64(timeout/time.Millisecond)
	for {
		if o.UpdateTime(n) > start {
			return true
		}
		if monotonicMillis() >= deadline {
			return false
		}
		time.Sleep(waitPollInterval)
	}
}
