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
	"math/rand"
	"testing"
)

func makeHeader(seed int64) []byte {
	hdr := make([]byte, headerSize)
	fillHeader(hdr, rand.New(rand.NewSource(seed)))
	hdr[validityOffset] = markerValid
	return hdr
}

func TestHeaderRoundTrip(t *testing.T) {
	for seed := int64(0); seed < 64; seed++ {
		hdr := makeHeader(seed)
		if err := validateHeader(hdr); err != nil {
			t.Fatalf("seed %d: produced header fails validation: %v", seed, err)
		}
		for i := randomStart; i < randomEnd; i++ {
			if hdr[i] == 0x00 || hdr[i] == 0xFF {
				t.Fatalf("seed %d: byte %d is 0x%02X", seed, i, hdr[i])
			}
		}
	}
}

func TestHeaderRejectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(h []byte)
	}{
		{"zeroed random byte", func(h []byte) { h[5] = 0x00 }},
		{"0xFF random byte", func(h []byte) { h[12] = 0xFF }},
		{"broken sequence", func(h []byte) { h[seqStart+3] += 2 }},
		{"checksum low byte", func(h []byte) { h[checksumOffset] ^= 0x01 }},
		{"checksum high byte", func(h []byte) { h[checksumOffset+1] ^= 0x80 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr := makeHeader(7)
			tt.corrupt(hdr)
			if err := validateHeader(hdr); err == nil {
				t.Error("corrupted header validated")
			}
		})
	}
}

func TestHeaderSequenceContinuesRandomRun(t *testing.T) {
	hdr := makeHeader(42)
	r := hdr[seqStart-1]
	for i := seqStart; i < seqEnd; i++ {
		r++
		if hdr[i] != r {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, hdr[i], r)
		}
	}
}
