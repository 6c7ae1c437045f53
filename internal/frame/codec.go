// Copyright 2026 The gcmodkit Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"errors"
	"fmt"
)

// ErrCountRange reports a bulk count outside 1..MaxTransfer.
var ErrCountRange = errors.New("bulk count out of range")

// EncodeAssert builds the control byte that drives the given pattern
// onto the chip wires. Bits above the payload are discarded.
func EncodeAssert(bits byte) byte {
	return OpAssert | bits&PayloadMask
}

// EncodeSample builds the control byte that requests a status sample.
func EncodeSample() byte {
	return OpSample
}

// EncodeBulkHeader builds the 3-byte header opening a bulk session.
// The count's high bits share the first byte with the opcode.
func EncodeBulkHeader(opcode byte, count int) ([HeaderLen]byte, error) {
	var hdr [HeaderLen]byte
	if opcode != OpBulkRead && opcode != OpBulkWrite {
		return hdr, fmt.Errorf("opcode 0x%02X does not open a bulk session", opcode)
	}
	if count < 1 || count > MaxTransfer {
		return hdr, fmt.Errorf("%w: %d", ErrCountRange, count)
	}
	hdr[0] = opcode | byte(count>>16)&PayloadMask
	hdr[1] = byte(count >> 8)
	hdr[2] = byte(count)
	return hdr, nil
}

// Opcode extracts the opcode bits of a control byte.
func Opcode(control byte) byte {
	return control & OpcodeMask
}

// ParseBulkHeader recovers the count declared by a bulk header.
func ParseBulkHeader(hdr [HeaderLen]byte) int {
	return int(hdr[0]&PayloadMask)<<16 | int(hdr[1])<<8 | int(hdr[2])
}

// NumChunks returns how many write chunks a count of bytes occupies.
func NumChunks(count int) int {
	return (count + ChunkSize - 1) / ChunkSize
}

// PadChunk copies a partial final chunk into a zero-padded full one.
func PadChunk(chunk []byte) [ChunkSize]byte {
	var padded [ChunkSize]byte
	copy(padded[:], chunk)
	return padded
}
