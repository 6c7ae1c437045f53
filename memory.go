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

import (
	"fmt"
	"time"
)

// InitReadMode rewinds the chip's read cursor to address zero and
// arms byte streaming. Valid in any mode.
func (d *Device) InitReadMode() error {
	if err := d.sendPentads(readCursorSeq[:]); err != nil {
		return fmt.Errorf("init read mode: %w", err)
	}
	d.mode = ModeReadCursor
	return nil
}

// ReadByte reads the byte under the chip's read cursor and advances
// the cursor. The chip serves the byte one bit at a time, least
// significant first; each sampled bit is acknowledged with a pentad
// carrying the bit index so the chip shifts the next one out.
func (d *Device) ReadByte() (byte, error) {
	if d.mode != ModeReadCursor {
		return 0, fmt.Errorf("%w: read requires %s mode, chip is %s",
			ErrInvalidMode, ModeReadCursor, d.mode)
	}
	if err := d.sendPentad(cmdRead); err != nil {
		return 0, fmt.Errorf("read command: %w", err)
	}

	var data byte
	for i := byte(0); i < 8; i++ {
		status, err := d.transport.Sample()
		if err != nil {
			return 0, fmt.Errorf("sample read bit %d: %w", i, err)
		}
		data = ((status & StatusDataMask) << 3) | data>>1
		if err := d.sendPentad(i); err != nil {
			return 0, fmt.Errorf("acknowledge read bit %d: %w", i, err)
		}
	}
	return data, nil
}

// WriteByte programs a single byte at the given chip address. The
// address wraps at DeviceSize. Erased flash reads 0xFF, so writing
// 0xFF is a no-op and performs no exchange at all; the fast path also
// skips the mode check because nothing touches the wire.
func (d *Device) WriteByte(data byte, addr int) error {
	if data == 0xFF {
		return nil
	}
	addr &= DeviceSize - 1
	if d.mode != ModeWriteReady {
		return fmt.Errorf("%w: write requires %s mode, chip is %s",
			ErrInvalidMode, ModeWriteReady, d.mode)
	}

	// One command pentad, then the 17-bit address and the data byte
	// packed into four operand pentads, high bits first.
	seq := [5]byte{
		cmdWriteByte,
		(data>>3)&0x1C | byte(addr>>15),
		byte(addr >> 10),
		byte(addr >> 5),
		byte(addr),
	}
	if err := d.sendPentads(seq[:]); err != nil {
		return fmt.Errorf("write byte at 0x%05X: %w", addr, err)
	}
	// The low five data bits go out four times; the chip latches the
	// value on the final repeat.
	for i := 0; i < 4; i++ {
		if err := d.sendPentad(data); err != nil {
			return fmt.Errorf("write byte at 0x%05X: %w", addr, err)
		}
	}
	return nil
}

// EraseChip wipes the whole flash. The chip starts its erase cycle
// after a fixed burst of ERASE pentads and exposes no completion
// flag, so completion is inferred by re-reading address zero until
// two consecutive polls return the same value. On success the chip
// is left ready for writes, after the configured settle delay.
func (d *Device) EraseChip() error {
	for i := 0; i < erasePulseCount; i++ {
		if err := d.sendPentad(cmdErase); err != nil {
			return fmt.Errorf("erase pulse %d: %w", i+1, err)
		}
	}

	policy := d.config.Erase
	var prev byte
	havePrev := false
	for polls := 0; policy.MaxPolls == 0 || polls < policy.MaxPolls; polls++ {
		if err := d.InitReadMode(); err != nil {
			return fmt.Errorf("erase settle poll: %w", err)
		}
		cur, err := d.ReadByte()
		if err != nil {
			return fmt.Errorf("erase settle poll: %w", err)
		}
		if havePrev && cur == prev {
			d.mode = ModeWriteReady
			if policy.SettleDelay > 0 {
				time.Sleep(policy.SettleDelay)
			}
			return nil
		}
		prev, havePrev = cur, true
	}
	return fmt.Errorf("%w: flash did not settle within %d erase polls",
		ErrWriteFailed, policy.MaxPolls)
}
