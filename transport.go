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
	"time"

	"github.com/gcmodkit/go-vipergc/internal/syncutil"
)

// TransportType identifies the kind of transport in use.
type TransportType string

const (
	// TransportParallel is a raw parallel port driven through I/O
	// port registers.
	TransportParallel TransportType = "parallel"
	// TransportBridge is a serial link to an Arduino that drives the
	// chip wires on the host's behalf.
	TransportBridge TransportType = "bridge"
	// TransportMock is an in-memory transport for testing.
	TransportMock TransportType = "mock"
)

// TransportCapability represents specific capabilities or behaviors of a transport
type TransportCapability string

const (
	// CapabilityBulkStream indicates the transport can move whole
	// address ranges in one exchange through the BulkStreamer
	// interface instead of one pentad at a time.
	CapabilityBulkStream TransportCapability = "bulk_stream"

	// CapabilityRemoteHandshake indicates the far end of the
	// transport runs the acknowledge handshake itself, so disabling
	// safe mode on the host changes nothing on the wire.
	CapabilityRemoteHandshake TransportCapability = "remote_handshake"
)

// TransportCapabilityChecker defines an interface for querying transport capabilities
// This provides a clean, type-safe alternative to reflection-based mode detection
type TransportCapabilityChecker interface {
	// HasCapability returns true if the transport has the specified capability
	HasCapability(capability TransportCapability) bool
}

// HasCapability reports whether the transport declares the given
// capability. Transports that do not implement
// TransportCapabilityChecker declare nothing.
func HasCapability(t Transport, capability TransportCapability) bool {
	if checker, ok := t.(TransportCapabilityChecker); ok {
		return checker.HasCapability(capability)
	}
	return false
}

// Transport is the signal-level interface between the protocol layers
// and the chip wires. Implementations expose the six host-to-chip
// lines as a single assertable pattern and the status register as a
// sampled byte. Calls block; all methods must be called from a single
// goroutine.
type Transport interface {
	// Assert drives the six host-to-chip wires to the given pattern.
	// Only the low six bits are meaningful.
	Assert(bits byte) error

	// Sample reads the chip-to-host status byte. Mask with
	// StatusDataMask and StatusAckMask to pick out the two lines.
	Sample() (byte, error)

	// SetTimeout bounds every subsequent blocking call. Transports
	// whose operations cannot block accept any value and ignore it.
	SetTimeout(timeout time.Duration) error

	// Close releases the underlying resource. The transport is
	// unusable afterwards.
	Close() error

	// Type returns the transport type identifier.
	Type() TransportType
}

// ProgressFunc receives running byte counts during bulk transfers.
type ProgressFunc func(done, total int)

// BulkStreamer is implemented by transports that can move whole
// regions in one exchange instead of one pentad at a time. Support
// is advertised through CapabilityBulkStream.
type BulkStreamer interface {
	// BulkRead fills buf from the chip's current read cursor and
	// returns how many bytes actually arrived.
	BulkRead(buf []byte, progress ProgressFunc) (int, error)

	// BulkWrite programs data starting at address zero. The chip
	// must already be erased.
	BulkWrite(data []byte, progress ProgressFunc) error
}

// MockTransport is a mock implementation of Transport for testing.
// Sample responses come from a queue, then a response function, then
// a default status byte, in that order of precedence.
type MockTransport struct {
	errOn         map[string]error
	callCount     map[string]int
	sampleFunc    func(call int) byte
	asserted      []byte
	samples       []byte
	defaultStatus byte
	closed        bool
	timeout       time.Duration
	mu            syncutil.RWMutex
}

// NewMockTransport creates a new mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		errOn:     make(map[string]error),
		callCount: make(map[string]int),
	}
}

// Assert records the asserted pattern.
func (m *MockTransport) Assert(bits byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount["assert"]++
	if err := m.errOn["assert"]; err != nil {
		return err
	}
	if m.closed {
		return ErrTransportClosed
	}
	m.asserted = append(m.asserted, bits&0x3F)
	return nil
}

// Sample returns the next scripted status byte.
func (m *MockTransport) Sample() (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.callCount["sample"]
	m.callCount["sample"]++
	if err := m.errOn["sample"]; err != nil {
		return 0, err
	}
	if m.closed {
		return 0, ErrTransportClosed
	}
	if len(m.samples) > 0 {
		s := m.samples[0]
		m.samples = m.samples[1:]
		return s, nil
	}
	if m.sampleFunc != nil {
		return m.sampleFunc(call), nil
	}
	return m.defaultStatus, nil
}

// SetTimeout records the requested timeout.
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount["settimeout"]++
	m.timeout = timeout
	return nil
}

// Close marks the transport as closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount["close"]++
	m.closed = true
	return nil
}

// Type returns TransportMock.
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// QueueSamples appends scripted Sample responses.
func (m *MockTransport) QueueSamples(values ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, values...)
}

// SetDefaultStatus sets the status byte returned once the sample
// queue is exhausted and no response function is installed.
func (m *MockTransport) SetDefaultStatus(status byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultStatus = status
}

// SetSampleFunc installs a response function keyed by the zero-based
// Sample call index.
func (m *MockTransport) SetSampleFunc(fn func(call int) byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleFunc = fn
}

// SetError makes the named operation ("assert" or "sample") fail.
func (m *MockTransport) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errOn[op] = err
}

// Asserted returns a copy of every pattern asserted so far.
func (m *MockTransport) Asserted() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.asserted))
	copy(out, m.asserted)
	return out
}

// GetCallCount returns the number of calls to the named operation.
func (m *MockTransport) GetCallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount[op]
}

// Timeout returns the last timeout passed to SetTimeout.
func (m *MockTransport) Timeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeout
}

var _ Transport = (*MockTransport)(nil)
