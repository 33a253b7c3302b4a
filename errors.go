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

import "errors"

var (
	// ErrSchemaInvalid indicates the schema document cannot be compiled:
	// a primitive without a default value, an integer size outside
	// {1,2,4,8}, a string without a positive size, array children not
	// densely numbered from zero, or an unknown type.
	ErrSchemaInvalid = errors.New("shmobj: invalid schema")

	// ErrSegmentOpenFailed indicates the named segment could not be
	// created, sized, or mapped.
	ErrSegmentOpenFailed = errors.New("shmobj: cannot open shared segment")

	// ErrSegmentCorrupt indicates an existing segment carried the valid
	// marker but its header failed validation.
	ErrSegmentCorrupt = errors.New("shmobj: segment header validation failed")

	// ErrInitTimeout indicates the bounded wait for another attacher's
	// initialization expired.
	ErrInitTimeout = errors.New("shmobj: timed out waiting for segment initialization")

	// ErrFutexNotSupported is returned by semaphore operations on
	// platforms without futex support.
	ErrFutexNotSupported = errors.New("shmobj: futex operations not supported on this platform")

	// errSemTimeout is the internal timed-acquire expiry signal.
	errSemTimeout = errors.New("shmobj: semaphore wait timed out")
)
