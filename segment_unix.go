//go:build unix

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
	"strings"

	"golang.org/x/sys/unix"
)

// defaultBaseDir picks where segment and semaphore files live: /dev/shm
// when it is available and writable, the temporary directory otherwise.
func defaultBaseDir() string {
	if isDevShmAvailable() {
		return "/dev/shm"
	}
	return os.TempDir()
}

func isDevShmAvailable() bool {
	info, err := os.Stat("/dev/shm")
	if err != nil || !info.IsDir() {
		return false
	}
	return unix.Access("/dev/shm", unix.W_OK) == nil
}

// segmentPath maps a POSIX-style segment name ("/my_segment") to a file
// path under the base directory.
func segmentPath(dir, name string) string {
	return filepath.Join(dir, strings.TrimPrefix(name, "/"))
}

// openSegmentFile opens the named segment read-write, creating it if
// absent, and ensures it is exactly size bytes long.
func openSegmentFile(path string, size uint32) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSegmentOpenFailed, path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrSegmentOpenFailed, path, err)
	}
	if info.Size() != int64(size) {
		if err := file.Truncate(int64(size)); err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: resize %s to %d: %v", ErrSegmentOpenFailed, path, size, err)
		}
	}
	return file, nil
}

// mmapFile maps size bytes of file read-write, shared.
func mmapFile(file *os.File, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %v", ErrSegmentOpenFailed, err)
	}
	return mem, nil
}

// unmapMemory releases a mapping created by mmapFile.
func unmapMemory(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("munmap failed: %w", err)
	}
	return nil
}

// RemoveSegment unlinks a segment file and every semaphore file created for
// it. The attach protocol never unlinks; this exists for tests and for
// tooling that retires a segment.
func RemoveSegment(name string, opts *Options) error {
	o := fillOptions(name, opts)
	var first error
	if err := os.Remove(segmentPath(o.BaseDir, name)); err != nil && !os.IsNotExist(err) {
		first = err
	}
	matches, _ := filepath.Glob(filepath.Join(o.BaseDir, o.SemPrefix+"_*"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	return first
}
