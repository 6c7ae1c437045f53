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

//go:build linux

// Package parport drives the chip wires through a raw PC parallel
// port. The data register at the base address carries the six
// host-to-chip lines and the status register at base+1 carries the
// chip-to-host lines. Register access goes through /dev/port, which
// needs root or CAP_SYS_RAWIO.
package parport

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	vipergc "github.com/gcmodkit/go-vipergc"
	"github.com/gcmodkit/go-vipergc/internal/syncutil"
)

// deviceNode exposes x86 I/O ports as a seekable byte space.
const deviceNode = "/dev/port"

// Transport implements the vipergc.Transport interface over I/O port
// registers.
type Transport struct {
	node   string
	port   string
	base   int64
	fd     int
	closed bool
	mu     syncutil.Mutex
}

// New opens the parallel port at the given I/O base address,
// typically vipergc.DefaultPortAddress.
func New(base uint16) (*Transport, error) {
	return newWithNode(deviceNode, base)
}

func newWithNode(node string, base uint16) (*Transport, error) {
	fd, err := unix.Open(node, unix.O_RDWR, 0)
	if err != nil {
		if err == unix.EACCES || err == unix.EPERM {
			return nil, fmt.Errorf("failed to open %s (raw port access requires root): %w", node, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", node, err)
	}
	return &Transport{
		node: node,
		port: fmt.Sprintf("0x%03X", base),
		base: int64(base),
		fd:   fd,
	}, nil
}

// Assert writes the pattern to the data register.
func (t *Transport) Assert(bits byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return vipergc.NewTransportError("assert", t.port, vipergc.ErrTransportClosed)
	}
	buf := [1]byte{bits}
	n, err := unix.Pwrite(t.fd, buf[:], t.base)
	if err != nil {
		return vipergc.NewTransportError("assert", t.port, fmt.Errorf("%w: %w", vipergc.ErrTransportWrite, err))
	}
	if n != 1 {
		return vipergc.NewTransportError("assert", t.port, vipergc.ErrTransportWrite)
	}
	return nil
}

// Sample reads the status register.
func (t *Transport) Sample() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, vipergc.NewTransportError("sample", t.port, vipergc.ErrTransportClosed)
	}
	var buf [1]byte
	n, err := unix.Pread(t.fd, buf[:], t.base+1)
	if err != nil {
		return 0, vipergc.NewTransportError("sample", t.port, fmt.Errorf("%w: %w", vipergc.ErrTransportRead, err))
	}
	if n != 1 {
		return 0, vipergc.NewTransportError("sample", t.port, vipergc.ErrTransportRead)
	}
	return buf[0], nil
}

// SetTimeout is a no-op; port register access never blocks.
func (*Transport) SetTimeout(_ time.Duration) error {
	return nil
}

// Close releases the port device.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if err := unix.Close(t.fd); err != nil {
		return fmt.Errorf("failed to close %s: %w", t.node, err)
	}
	return nil
}

// Type returns the transport type.
func (*Transport) Type() vipergc.TransportType {
	return vipergc.TransportParallel
}

var _ vipergc.Transport = (*Transport)(nil)
