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

// Package bridge drives the chip wires through an Arduino connected
// over a serial port. The Arduino runs a small firmware that applies
// asserted patterns to the chip, samples the status lines on request,
// and runs whole bulk transfers on its own to dodge the per-byte
// serial round-trip cost.
package bridge

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	vipergc "github.com/gcmodkit/go-vipergc"
	"github.com/gcmodkit/go-vipergc/internal/frame"
	"github.com/gcmodkit/go-vipergc/internal/syncutil"
)

const (
	// baudRate matches the bridge firmware. Anything lower starves
	// bulk transfers.
	baudRate = 1_000_000

	// DefaultTimeout bounds every single-byte exchange.
	DefaultTimeout = time.Second

	// bulkAckTimeout bounds the wait for a chunk acknowledgment.
	// The bridge writes each chunk byte-by-byte through the pentad
	// protocol before acknowledging, which takes well over a second.
	bulkAckTimeout = 5 * time.Second

	// pingRetryDelay is slept before the second and final ping when
	// the first one goes unanswered. Arduinos reset on port open and
	// need a moment before the firmware listens.
	pingRetryDelay = time.Second
)

// Transport implements the vipergc.Transport interface over a serial
// link to the bridge firmware.
type Transport struct {
	port     serial.Port
	portName string
	timeout  time.Duration
	closed   bool
	mu       syncutil.Mutex
}

// New opens the serial device and probes the bridge firmware. The
// probe is retried once after a short delay; a bridge that stays
// silent is reported as an error.
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	t, err := NewFromPort(port, portName)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	if err := t.ping(); err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewFromPort wraps an already opened serial port. It does not probe
// the firmware; callers that need the probe use New.
func NewFromPort(port serial.Port, portName string) (*Transport, error) {
	if err := port.SetReadTimeout(DefaultTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	return &Transport{
		port:     port,
		portName: portName,
		timeout:  DefaultTimeout,
	}, nil
}

// ping sends a sample request and waits for the one-byte reply. The
// reply value does not matter; any byte proves the firmware is up.
func (t *Transport) ping() error {
	if err := t.writeAll([]byte{frame.Ping}, "ping"); err != nil {
		return err
	}
	if _, err := t.readByte(); err == nil {
		return t.flushAfterPing()
	}

	// First ping lost, likely to the firmware's startup reset.
	time.Sleep(pingRetryDelay)
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", t.portName, err)
	}
	if err := t.writeAll([]byte{frame.Ping}, "ping"); err != nil {
		return err
	}
	if _, err := t.readByte(); err != nil {
		return fmt.Errorf("bridge on %s is not responding: %w", t.portName, err)
	}
	return t.flushAfterPing()
}

// flushAfterPing discards anything the firmware printed on boot so
// protocol replies start from a clean buffer.
func (t *Transport) flushAfterPing() error {
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", t.portName, err)
	}
	vipergc.Debugf("bridge on %s answered ping", t.portName)
	return nil
}

// writeAll pushes the whole buffer onto the wire.
func (t *Transport) writeAll(data []byte, op string) error {
	n, err := t.port.Write(data)
	if err != nil {
		return vipergc.NewTransportError(op, t.portName,
			fmt.Errorf("%w: %w", vipergc.ErrTransportWrite, err))
	}
	if n != len(data) {
		return vipergc.NewTransportError(op, t.portName,
			fmt.Errorf("%w: short write %d of %d", vipergc.ErrTransportWrite, n, len(data)))
	}
	return nil
}

// readByte waits for a single reply byte within the read timeout.
// The serial library signals timeout as a zero-length read.
func (t *Transport) readByte() (byte, error) {
	var buf [1]byte
	n, err := t.port.Read(buf[:])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", vipergc.ErrTransportRead, err)
	}
	if n == 0 {
		return 0, vipergc.ErrTransportTimeout
	}
	return buf[0], nil
}

// Assert forwards the wire pattern to the bridge.
func (t *Transport) Assert(bits byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return vipergc.NewTransportError("assert", t.portName, vipergc.ErrTransportClosed)
	}
	return t.writeAll([]byte{frame.EncodeAssert(bits)}, "assert")
}

// Sample asks the bridge for the chip status byte.
func (t *Transport) Sample() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, vipergc.NewTransportError("sample", t.portName, vipergc.ErrTransportClosed)
	}
	if err := t.writeAll([]byte{frame.EncodeSample()}, "sample"); err != nil {
		return 0, err
	}
	status, err := t.readByte()
	if err != nil {
		return 0, vipergc.NewTransportError("sample", t.portName, err)
	}
	return status, nil
}

// SetTimeout bounds subsequent single-byte exchanges. Bulk-write
// acknowledgment waits keep their own fixed budget.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout on %s: %w", t.portName, err)
	}
	t.timeout = timeout
	return nil
}

// Close releases the serial port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", t.portName, err)
	}
	return nil
}

// Type returns the transport type.
func (*Transport) Type() vipergc.TransportType {
	return vipergc.TransportBridge
}

// HasCapability returns true if the transport has the specified capability
func (*Transport) HasCapability(capability vipergc.TransportCapability) bool {
	switch capability {
	case vipergc.CapabilityBulkStream, vipergc.CapabilityRemoteHandshake:
		return true
	default:
		return false
	}
}

var (
	_ vipergc.Transport                  = (*Transport)(nil)
	_ vipergc.BulkStreamer               = (*Transport)(nil)
	_ vipergc.TransportCapabilityChecker = (*Transport)(nil)
)
