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

package hwsim

import (
	"bytes"
	"errors"
	"time"

	"go.bug.st/serial"

	"github.com/gcmodkit/go-vipergc/internal/syncutil"
)

// Bridge-side protocol constants, independent of the host codec.
const (
	bridgeOpMask    = 0xC0
	bridgeOpAssert  = 0x00
	bridgeOpSample  = 0x40
	bridgeOpRead    = 0x80
	bridgeOpWrite   = 0xC0
	bridgePayload   = 0x3F
	bridgeHeaderLen = 3
	bridgeChunkSize = 60
	bridgeChunkAck  = 60
)

// bridgeMode tracks what the firmware loop expects next.
type bridgeMode int

const (
	bridgeIdle bridgeMode = iota
	bridgeCollectChunks
)

// VirtualBridge simulates the Arduino bridge firmware in front of a
// VirtualChip. It implements io.ReadWriter; bytes written are parsed
// as control traffic and replies accumulate for Read.
type VirtualBridge struct {
	chip *VirtualChip

	rx bytes.Buffer
	tx bytes.Buffer

	mode           bridgeMode
	writeRemaining int
	writeAddr      int
	chunkIndex     int

	// readFragment caps how many bytes a single Read returns, to
	// exercise partial drains of bulk streams.
	readFragment int

	dropSampleReplies int
	failAckChunk      int
	failAckValue      byte
	dropAckChunk      int

	mu syncutil.Mutex
}

// NewVirtualBridge creates a bridge wired to the given chip.
func NewVirtualBridge(chip *VirtualChip) *VirtualBridge {
	return &VirtualBridge{chip: chip}
}

// Chip returns the chip behind the bridge.
func (b *VirtualBridge) Chip() *VirtualChip {
	return b.chip
}

// SetReadFragment caps how many bytes each Read returns. Zero means
// unlimited.
func (b *VirtualBridge) SetReadFragment(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readFragment = n
}

// SetDropSampleReplies makes the bridge swallow replies to the next
// n sample requests, simulating firmware still in startup reset.
func (b *VirtualBridge) SetDropSampleReplies(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropSampleReplies = n
}

// FailChunkAck makes the 1-based nth bulk-write chunk acknowledge
// with the given value instead of the chunk size.
func (b *VirtualBridge) FailChunkAck(chunk int, value byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAckChunk = chunk
	b.failAckValue = value
}

// DropChunkAck makes the 1-based nth bulk-write chunk acknowledgment
// never arrive.
func (b *VirtualBridge) DropChunkAck(chunk int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropAckChunk = chunk
}

// Write receives control traffic from the host.
func (b *VirtualBridge) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rx.Write(data)
	b.process()
	return len(data), nil
}

// Read returns pending reply bytes, possibly fragmented.
func (b *VirtualBridge) Read(buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tx.Len() == 0 {
		return 0, nil
	}
	limit := len(buf)
	if b.readFragment > 0 && limit > b.readFragment {
		limit = b.readFragment
	}
	return b.tx.Read(buf[:limit])
}

// process consumes as much buffered control traffic as possible.
func (b *VirtualBridge) process() {
	for {
		switch b.mode {
		case bridgeIdle:
			if b.rx.Len() == 0 {
				return
			}
			control := b.rx.Bytes()[0]
			switch control & bridgeOpMask {
			case bridgeOpAssert:
				_, _ = b.rx.ReadByte()
				_ = b.chip.Assert(control & bridgePayload)

			case bridgeOpSample:
				_, _ = b.rx.ReadByte()
				if b.dropSampleReplies > 0 {
					b.dropSampleReplies--
					continue
				}
				status, _ := b.chip.Sample()
				b.tx.WriteByte(status)

			case bridgeOpRead:
				count, ok := b.takeHeader()
				if !ok {
					return
				}
				b.tx.Write(b.chip.streamRead(count))

			case bridgeOpWrite:
				count, ok := b.takeHeader()
				if !ok {
					return
				}
				b.writeRemaining = count
				b.writeAddr = 0
				b.chunkIndex = 0
				b.mode = bridgeCollectChunks
			}

		case bridgeCollectChunks:
			if b.rx.Len() < bridgeChunkSize {
				return
			}
			chunk := make([]byte, bridgeChunkSize)
			_, _ = b.rx.Read(chunk)
			b.chunkIndex++

			payload := b.writeRemaining
			if payload > bridgeChunkSize {
				payload = bridgeChunkSize
			}
			for i := 0; i < payload; i++ {
				b.chip.bulkWriteByte(b.writeAddr, chunk[i])
				b.writeAddr++
			}
			b.writeRemaining -= payload

			switch {
			case b.chunkIndex == b.dropAckChunk:
				// Host times out waiting for this one.
			case b.chunkIndex == b.failAckChunk:
				b.tx.WriteByte(b.failAckValue)
			default:
				b.tx.WriteByte(bridgeChunkAck)
			}

			if b.writeRemaining == 0 {
				b.mode = bridgeIdle
			}
		}
	}
}

// takeHeader consumes a 3-byte bulk header if it is fully buffered.
func (b *VirtualBridge) takeHeader() (int, bool) {
	if b.rx.Len() < bridgeHeaderLen {
		return 0, false
	}
	var hdr [bridgeHeaderLen]byte
	_, _ = b.rx.Read(hdr[:])
	count := int(hdr[0]&bridgePayload)<<16 | int(hdr[1])<<8 | int(hdr[2])
	return count, true
}

// errPortClosed is returned for operations on a closed port.
var errPortClosed = errors.New("port is closed")

// Port wraps a VirtualBridge to implement the serial.Port interface,
// so the serial transport can run against the simulator. An empty
// reply buffer reads as an immediate timeout; the simulator answers
// synchronously, so there is never data in flight to wait for.
type Port struct {
	bridge      *VirtualBridge
	readTimeout time.Duration
	closed      bool
}

// NewPort creates a mock serial port backed by the bridge simulator.
func NewPort(bridge *VirtualBridge) *Port {
	return &Port{bridge: bridge}
}

func (*Port) SetMode(_ *serial.Mode) error {
	return nil
}

func (p *Port) Read(buf []byte) (int, error) {
	if p.closed {
		return 0, errPortClosed
	}
	return p.bridge.Read(buf)
}

func (p *Port) Write(data []byte) (int, error) {
	if p.closed {
		return 0, errPortClosed
	}
	return p.bridge.Write(data)
}

func (*Port) Drain() error {
	return nil
}

func (p *Port) ResetInputBuffer() error {
	p.bridge.mu.Lock()
	defer p.bridge.mu.Unlock()
	p.bridge.tx.Reset()
	return nil
}

func (*Port) ResetOutputBuffer() error {
	return nil
}

func (*Port) SetDTR(_ bool) error {
	return nil
}

func (*Port) SetRTS(_ bool) error {
	return nil
}

func (*Port) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (p *Port) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return nil
}

func (p *Port) Close() error {
	p.closed = true
	return nil
}

func (*Port) Break(_ time.Duration) error {
	return nil
}

var _ serial.Port = (*Port)(nil)
