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

package vipergc

// Viper chip command pentads. Every command is a single 5-bit value;
// multi-pentad sequences below carry their operands inline.
const (
	cmdReset     = 0x00
	cmdErase     = 0x03
	cmdWriteByte = 0x05
	cmdRead      = 0x0D
)

// erasePulseCount is the number of consecutive ERASE pentads the chip
// requires before it starts a bulk erase cycle.
const erasePulseCount = 13

// chipIdentSeq is the identification sequence sent after reset. The
// first value exceeds five bits on purpose; the link layer truncates
// it to 0x1F on the wire and the chip matches the truncated form.
var chipIdentSeq = [3]byte{0xFF, 0x0C, 0x12}

// readCursorSeq rewinds the chip's internal read cursor to address
// zero and arms byte streaming mode.
var readCursorSeq = [5]byte{0x11, 0x00, 0x00, 0x00, 0x00}

// Status register masks. On a DB-25 parallel port the data bit rides
// pin 13 (Select) and the acknowledge bit rides pin 15 (Error).
const (
	// StatusDataMask selects the chip-to-host data bit in a sampled
	// status byte.
	StatusDataMask = 0x10
	// StatusAckMask selects the chip-to-host acknowledge bit driven
	// during the safe-mode handshake.
	StatusAckMask = 0x08
)

// DeviceSize is the capacity of the Viper GC flash in bytes. Chip
// addresses are 17 bits wide and wrap at this boundary.
const DeviceSize = 0x20000

// DefaultPortAddress is the I/O base of the first parallel port on PC
// hardware, used when no explicit port address is configured.
const DefaultPortAddress = 0x378
