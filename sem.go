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
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
	"unsafe"
)

// sem is a named cross-process counting semaphore: a single futex word in a
// file mapped by every attacher. The file persists with the segment and is
// opened, never destroyed, by attachers.
type sem struct {
	name string
	path string
	file *os.File
	mem  []byte
	word *uint32
}

const semWordSize = 4

// openSem creates the named semaphore with initial value 1, or opens the
// existing one. Creation is exclusive, so exactly one attacher writes the
// initial value.
func openSem(dir, name string) (*sem, error) {
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o666)
	created := err == nil
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create semaphore %s: %w", path, err)
		}
		file, err = os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to open semaphore %s: %w", path, err)
		}
		// The creator may not have sized the file yet.
		if err := waitForSize(file, semWordSize, 100*time.Millisecond); err != nil {
			file.Close()
			return nil, fmt.Errorf("semaphore %s: %w", path, err)
		}
	} else if err := file.Truncate(semWordSize); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to size semaphore %s: %w", path, err)
	}

	mem, err := mmapFile(file, semWordSize)
	if err != nil {
		file.Close()
		if created {
			os.Remove(path)
		}
		return nil, fmt.Errorf("failed to map semaphore %s: %w", path, err)
	}
	s := &sem{
		name: name,
		path: path,
		file: file,
		mem:  mem,
		word: (*uint32)(unsafe.Pointer(&mem[0])),
	}
	if created {
		atomic.StoreUint32(s.word, 1)
	}
	return s, nil
}

func waitForSize(file *os.File, size int64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		info, err := file.Stat()
		if err != nil {
			return err
		}
		if info.Size() >= size {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("not initialized within %v", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

// acquire decrements the count, blocking while it is zero.
func (s *sem) acquire() error {
	for {
		v := atomic.LoadUint32(s.word)
		if v > 0 {
			if atomic.CompareAndSwapUint32(s.word, v, v-1) {
				return nil
			}
			continue
		}
		if err := futexWait(s.word, 0); err != nil {
			return err
		}
	}
}

// tryAcquire decrements the count without blocking. Reports whether the
// semaphore was taken.
func (s *sem) tryAcquire() bool {
	for {
		v := atomic.LoadUint32(s.word)
		if v == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(s.word, v, v-1) {
			return true
		}
	}
}

// acquireTimeout is acquire with a bounded wait. Returns errSemTimeout when
// the deadline expires.
func (s *sem) acquireTimeout(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		v := atomic.LoadUint32(s.word)
		if v > 0 {
			if atomic.CompareAndSwapUint32(s.word, v, v-1) {
				return nil
			}
			continue
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return errSemTimeout
		}
		if err := futexWaitTimeout(s.word, 0, remain.Nanoseconds()); err != nil && err != errSemTimeout {
			return err
		}
	}
}

// release increments the count and wakes one waiter.
func (s *sem) release() {
	atomic.AddUint32(s.word, 1)
	futexWake(s.word, 1)
}

// close unmaps and closes the handle. The semaphore file itself persists.
func (s *sem) close() {
	if s.mem != nil {
		unmapMemory(s.mem)
		s.mem = nil
		s.word = nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
}
