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

// Pentad wire layout. A pentad is a 5-bit value spread across the six
// host-to-chip wires: value bits 0-3 map to wire bits 0-3, value bit 4
// maps to wire bit 5, and wire bit 4 is the strobe line. The chip
// latches the other five wires on the strobe's low-to-high transition.
const (
	// StrobeMask selects the strobe line in an asserted wire pattern.
	StrobeMask = 0x10

	pentadLowBits  = 0x0F
	pentadHighBit  = 0x10
	patternHighBit = 0x20
)

// EncodePentad maps a 5-bit value onto the six-wire line pattern with
// the strobe line low. Bits above the fifth are discarded.
func EncodePentad(value byte) byte {
	pattern := value & pentadLowBits
	if value&pentadHighBit != 0 {
		pattern |= patternHighBit
	}
	return pattern
}

// DecodePentad recovers the 5-bit value from a six-wire line pattern,
// ignoring the strobe line. It is the inverse of EncodePentad for any
// value that fits in five bits.
func DecodePentad(pattern byte) byte {
	value := pattern & pentadLowBits
	if pattern&patternHighBit != 0 {
		value |= pentadHighBit
	}
	return value
}
