//go:build linux

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
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The semaphore words live in memory mapped by multiple processes, so the
// shared (non-private) futex operations are required.
//
// golang.org/x/sys/unix does not export the FUTEX_* op codes (they come
// from the kernel's linux/futex.h, not from a syscall-generation table),
// so the well-known values are declared locally.
const (
	futexWaitOp = 0
	futexWakeOp = 1
)

// futexWait blocks until the value at addr is no longer val, or a wake
// arrives. Spurious returns are possible; callers re-check the condition.
func futexWait(addr *uint32, val uint32) error {
	// Re-check atomically before entering the syscall so a wake between
	// snapshot and entry is not lost.
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWaitOp),
		uintptr(val),
		0, 0, 0,
	)
	if errno != 0 && errno != unix.EAGAIN && errno != unix.EINTR {
		return fmt.Errorf("futex wait failed: %w", errno)
	}
	return nil
}

// futexWaitTimeout is futexWait with a relative timeout. Returns
// errSemTimeout when the wait expires.
func futexWaitTimeout(addr *uint32, val uint32, timeoutNs int64) error {
	if timeoutNs <= 0 {
		return futexWait(addr, val)
	}
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	ts := unix.NsecToTimespec(timeoutNs)
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWaitOp),
		uintptr(val),
		uintptr(unsafe.Pointer(&ts)),
		0, 0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	case unix.ETIMEDOUT:
		return errSemTimeout
	}
	return fmt.Errorf("futex timed wait failed: %w", errno)
}

// futexWake wakes up to n waiters blocked on addr.
func futexWake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWakeOp),
		uintptr(n),
		0, 0, 0,
	)
	if errno != 0 {
		return fmt.Errorf("futex wake failed: %w", errno)
	}
	return nil
}
