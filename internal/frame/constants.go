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

// Package frame encodes and decodes the control bytes of the Arduino
// bridge protocol. Chip wire patterns use six bits, which leaves the
// top two bits of every control byte free to carry an opcode.
package frame

// Opcodes, in the top two bits of a control byte.
const (
	// OpAssert drives the low six bits onto the chip wires.
	OpAssert = 0x00
	// OpSample asks the bridge for the status byte; it answers with
	// exactly one byte.
	OpSample = 0x40
	// OpBulkRead opens a 3-byte header declaring how many bytes the
	// bridge should stream back.
	OpBulkRead = 0x80
	// OpBulkWrite opens a 3-byte header declaring how many bytes the
	// host will send in acknowledged chunks.
	OpBulkWrite = 0xC0

	// OpcodeMask selects the opcode bits of a control byte.
	OpcodeMask = 0xC0
	// PayloadMask selects the six payload bits of a control byte.
	PayloadMask = 0x3F
)

// Ping is the byte sent to probe a freshly opened bridge. It is a
// plain sample request; any reply proves the firmware is listening.
const Ping = OpSample

// Bulk session framing.
const (
	// HeaderLen is the length of a bulk session header.
	HeaderLen = 3
	// ChunkSize is the fixed bulk-write chunk length. The final
	// chunk is zero-padded to this size.
	ChunkSize = 60
	// ChunkAck is the acknowledgment value the bridge returns after
	// consuming one full chunk. Anything else aborts the session.
	ChunkAck = ChunkSize
	// MaxTransfer bounds a bulk session to the flash capacity. The
	// header field is wider, but no chip region exceeds this.
	MaxTransfer = 0x20000
)
