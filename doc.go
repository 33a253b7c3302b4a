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

// Package shmobj implements a shared, schema-defined structured memory store
// for cooperating processes on a single host.
//
// A declarative schema document describes a fixed, typed, hierarchical data
// structure. The schema is compiled into a deterministic memory layout which
// is placed in a named shared-memory segment: a validity header, one 64-bit
// update-timestamp slot per primitive field, and the field values grouped by
// primitive class so every value is naturally aligned. The first process to
// attach initializes the segment with the schema's default values; later
// attachers validate the header and map the existing state.
//
// Values are read and written through typed accessors resolved by dotted or
// slash-separated paths. Mutation of a subtree is serialized by a named
// cross-process semaphore owned by the subtree's enclosing composite, and
// every write stamps the field's monotonic-millisecond update time.
//
// The Mirror type maintains a private copy of the payload and produces
// structured, hysteresis-aware diffs describing what changed in shared
// memory since the previous query.
package shmobj
