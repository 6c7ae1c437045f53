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

// Package hwsim provides wire-level simulators for tests: a virtual
// Viper GC flash chip that decodes pentads from raw line patterns,
// and a virtual Arduino bridge on top of it.
//
// The chip simulator decodes the wire protocol with its own bit
// logic rather than the host codec, so an encode bug on the host
// side cannot cancel out in tests.
package hwsim

import (
	"time"

	vipergc "github.com/gcmodkit/go-vipergc"
	"github.com/gcmodkit/go-vipergc/internal/syncutil"
)

// Chip-side wire constants, kept independent of the host codec.
const (
	chipFlashSize = 0x20000
	chipAddrMask  = chipFlashSize - 1

	wireStrobe  = 0x10 // strobe line in an asserted pattern
	wireLowBits = 0x0F // pentad bits 0-3
	wireHighBit = 0x20 // pentad bit 4

	statusAck  = 0x08 // chip-to-host acknowledge line
	statusData = 0x10 // chip-to-host data line

	chipCmdReset     = 0x00
	chipCmdErase     = 0x03
	chipCmdWriteByte = 0x05
	chipCmdRead      = 0x0D
	chipCmdCursor    = 0x11

	chipErasePulses = 13
)

// chipIdent is the identification sequence as it appears on the
// wire; the host's leading 0xFF arrives truncated to five bits.
var chipIdent = [3]byte{0x1F, 0x0C, 0x12}

// decodeState tracks what the chip expects next.
type decodeState int

const (
	stateCommand decodeState = iota
	stateReadBits
	stateWriteOperands
	stateCursorOperands
)

// VirtualChip simulates the flash chip at the line level. It
// implements the vipergc.Transport interface so protocol code can be
// exercised against it directly, as if wired to a parallel port.
type VirtualChip struct {
	flash    []byte
	operands []byte

	state           decodeState
	cursor          int
	curByte         byte
	readBit         int
	identProgress   int
	eraseCount      int
	settlePolls     int
	settleRemaining int
	writeAddr       int

	lastStrobe bool
	haveSetup  bool
	setupValue byte
	ackLevel   bool
	identified bool
	writeArmed bool
	closed     bool

	failHandshake bool
	statusNoise   byte

	asserts           int
	samples           int
	writes            int
	readsServed       int
	eraseCycles       int
	readInits         int
	strobeViolations  int
	badAcks           int
	valueMismatches   int
	writesBeforeErase int

	mu syncutil.Mutex
}

// NewVirtualChip creates a chip with fully erased flash.
func NewVirtualChip() *VirtualChip {
	c := &VirtualChip{
		flash: make([]byte, chipFlashSize),
	}
	for i := range c.flash {
		c.flash[i] = 0xFF
	}
	return c
}

// SetFlash overwrites the flash contents, padding the tail with the
// erased value.
func (c *VirtualChip) SetFlash(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.flash {
		if i < len(data) {
			c.flash[i] = data[i]
		} else {
			c.flash[i] = 0xFF
		}
	}
}

// SetSettlePolls makes the first n reads after an erase return
// unstable values, the way real flash reads garbage mid-cycle.
func (c *VirtualChip) SetSettlePolls(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settlePolls = n
}

// SetFailHandshake freezes the acknowledge line low, simulating an
// absent or mis-wired chip.
func (c *VirtualChip) SetFailHandshake(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failHandshake = fail
}

// SetStatusNoise ORs junk into every sampled status byte, on the
// lines the protocol is supposed to mask out.
func (c *VirtualChip) SetStatusNoise(noise byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusNoise = noise &^ byte(statusAck|statusData)
}

// Assert receives a line pattern from the host.
func (c *VirtualChip) Assert(bits byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return vipergc.ErrTransportClosed
	}
	c.asserts++

	strobe := bits&wireStrobe != 0
	value := bits&wireLowBits | (bits&wireHighBit)>>1

	if !strobe {
		if c.haveSetup && !c.lastStrobe {
			// Two setup phases in a row; the previous pentad was
			// never strobed in.
			c.strobeViolations++
		}
		c.setupValue = value
		c.haveSetup = true
		c.ackLevel = true
	} else {
		if !c.haveSetup {
			c.strobeViolations++
		} else if c.setupValue != value {
			c.valueMismatches++
		}
		c.latch(value)
		c.haveSetup = false
		c.ackLevel = false
	}
	c.lastStrobe = strobe
	return nil
}

// Sample returns the chip-to-host status byte.
func (c *VirtualChip) Sample() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, vipergc.ErrTransportClosed
	}
	c.samples++

	status := c.statusNoise
	if c.ackLevel && !c.failHandshake {
		status |= statusAck
	}
	if c.state == stateReadBits && (c.curByte>>c.readBit)&1 != 0 {
		status |= statusData
	}
	return status, nil
}

// SetTimeout satisfies the transport interface; the chip answers
// instantly.
func (*VirtualChip) SetTimeout(_ time.Duration) error {
	return nil
}

// Close marks the chip as disconnected.
func (c *VirtualChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Type identifies the simulator as a mock transport.
func (*VirtualChip) Type() vipergc.TransportType {
	return vipergc.TransportMock
}

// latch processes one pentad on the strobe's rising edge.
func (c *VirtualChip) latch(value byte) {
	switch c.state {
	case stateReadBits:
		if int(value) != c.readBit {
			c.badAcks++
		}
		c.readBit++
		if c.readBit == 8 {
			c.cursor = (c.cursor + 1) & chipAddrMask
			c.state = stateCommand
		}

	case stateWriteOperands:
		c.operands = append(c.operands, value)
		if len(c.operands) == 8 {
			c.applyWrite()
			c.operands = nil
			c.state = stateCommand
		}

	case stateCursorOperands:
		c.operands = append(c.operands, value)
		if len(c.operands) == 4 {
			c.cursor = operandAddr(c.operands)
			c.operands = nil
			c.readInits++
			c.state = stateCommand
		}

	case stateCommand:
		c.command(value)
	}
}

// command dispatches a pentad received in command state.
func (c *VirtualChip) command(value byte) {
	if value != chipCmdErase {
		c.eraseCount = 0
	}

	switch value {
	case chipCmdReset:
		c.identProgress = 0
		c.operands = nil
		c.readBit = 0

	case chipCmdErase:
		c.eraseCount++
		if c.eraseCount == chipErasePulses {
			c.eraseCount = 0
			c.startErase()
		}

	case chipCmdWriteByte:
		c.operands = nil
		c.state = stateWriteOperands

	case chipCmdRead:
		c.beginReadByte()

	case chipCmdCursor:
		c.operands = nil
		c.state = stateCursorOperands

	default:
		c.matchIdent(value)
	}
}

// matchIdent advances the identification sequence matcher.
func (c *VirtualChip) matchIdent(value byte) {
	if value == chipIdent[c.identProgress] {
		c.identProgress++
		if c.identProgress == len(chipIdent) {
			c.identified = true
			c.identProgress = 0
		}
		return
	}
	c.identProgress = 0
	if value == chipIdent[0] {
		c.identProgress = 1
	}
}

// beginReadByte loads the byte under the cursor and starts serving
// its bits, least significant first. Reads taken while an erase
// cycle is still settling return garbage that differs every time.
func (c *VirtualChip) beginReadByte() {
	c.readsServed++
	if c.settleRemaining > 0 {
		c.curByte = byte(c.settleRemaining) ^ 0xA5
		c.settleRemaining--
	} else {
		c.curByte = c.flash[c.cursor]
	}
	c.readBit = 0
	c.state = stateReadBits
}

// applyWrite decodes the collected operand pentads and programs one
// byte. Operands 0-3 carry the address and the high data bits;
// operands 4-7 repeat the low data bits.
func (c *VirtualChip) applyWrite() {
	addr := operandAddr(c.operands[:4])
	data := ((c.operands[0]>>2)&0x07)<<5 | c.operands[7]&0x1F

	for i := 5; i < 8; i++ {
		if c.operands[i] != c.operands[4] {
			c.valueMismatches++
		}
	}
	if !c.writeArmed {
		c.writesBeforeErase++
	}
	c.flash[addr] = data
	c.writes++
}

// operandAddr reassembles a 17-bit address from operand pentads: two
// bits from the first, then three 5-bit fragments.
func operandAddr(ops []byte) int {
	return (int(ops[0]&0x03)<<15 | int(ops[1])<<10 | int(ops[2])<<5 | int(ops[3])) & chipAddrMask
}

// startErase wipes the flash and arms writes. The next settlePolls
// reads observe the unstable mid-cycle state.
func (c *VirtualChip) startErase() {
	for i := range c.flash {
		c.flash[i] = 0xFF
	}
	c.settleRemaining = c.settlePolls
	c.writeArmed = true
	c.eraseCycles++
}

// streamRead serves a bulk read from the cursor on the bridge's
// behalf, bypassing the per-bit protocol.
func (c *VirtualChip) streamRead(count int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]byte, count)
	for i := range out {
		out[i] = c.flash[c.cursor]
		c.cursor = (c.cursor + 1) & chipAddrMask
	}
	return out
}

// bulkWriteByte programs one byte on the bridge's behalf with the
// same skip-erased-value semantics the firmware uses.
func (c *VirtualChip) bulkWriteByte(addr int, data byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if data == 0xFF {
		return
	}
	if !c.writeArmed {
		c.writesBeforeErase++
	}
	c.flash[addr&chipAddrMask] = data
	c.writes++
}

// Flash returns a copy of the flash contents.
func (c *VirtualChip) Flash() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.flash))
	copy(out, c.flash)
	return out
}

// Identified reports whether the identification sequence completed.
func (c *VirtualChip) Identified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identified
}

// Cursor returns the current read cursor.
func (c *VirtualChip) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Asserts returns the number of line patterns received.
func (c *VirtualChip) Asserts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asserts
}

// Writes returns the number of byte writes programmed.
func (c *VirtualChip) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// ReadsServed returns the number of READ commands served.
func (c *VirtualChip) ReadsServed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readsServed
}

// EraseCycles returns the number of completed erase bursts.
func (c *VirtualChip) EraseCycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eraseCycles
}

// StrobeViolations returns the number of strobe sequencing faults,
// which a correct host never produces.
func (c *VirtualChip) StrobeViolations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strobeViolations
}

// BadAcks returns the number of read-bit acknowledgments whose index
// did not match the bit being served.
func (c *VirtualChip) BadAcks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.badAcks
}

// ValueMismatches returns the number of pentads whose setup and
// strobe phases disagreed, plus disagreeing write data repeats.
func (c *VirtualChip) ValueMismatches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valueMismatches
}

// WritesBeforeErase returns the number of writes attempted without a
// preceding erase.
func (c *VirtualChip) WritesBeforeErase() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writesBeforeErase
}

var _ vipergc.Transport = (*VirtualChip)(nil)
