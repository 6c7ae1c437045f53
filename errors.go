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
	"errors"
	"fmt"
)

// Error categories, from the wire up.
var (
	// Transport errors. These always originate in a transport
	// implementation and arrive wrapped in a *TransportError.
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportClosed  = errors.New("transport is closed")

	// ErrHandshakeTimeout reports that the chip never toggled its
	// acknowledge line within the safe-mode polling window.
	ErrHandshakeTimeout = errors.New("handshake timeout")

	// ErrDeviceNotFound reports that the chip did not answer the
	// identification sequence. The usual causes are a missing mod,
	// a wrong port address, or a cabling fault.
	ErrDeviceNotFound = errors.New("chip not found")

	// Operation errors.
	ErrReadFailed  = errors.New("read from chip failed")
	ErrWriteFailed = errors.New("write to chip failed")

	// ErrImageTooLarge reports an image that does not fit the chip.
	ErrImageTooLarge = errors.New("image exceeds device capacity")

	// ErrInvalidMode reports a byte operation issued while the chip
	// is not in the mode that operation requires.
	ErrInvalidMode = errors.New("operation invalid in current chip mode")
)

// TransportError wraps a transport-level failure with the operation
// and port it happened on.
type TransportError struct {
	Err  error
	Op   string
	Port string
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err with op and port context.
func NewTransportError(op, port string, err error) *TransportError {
	return &TransportError{Op: op, Port: port, Err: err}
}

// NewTimeoutError builds a TransportError for an operation that ran
// out of time waiting on the wire.
func NewTimeoutError(op, port string) *TransportError {
	return &TransportError{Op: op, Port: port, Err: ErrTransportTimeout}
}

// IsTimeout reports whether err is a transport or handshake timeout
// anywhere in its chain.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTransportTimeout) || errors.Is(err, ErrHandshakeTimeout)
}

// MismatchError reports the first offset at which the chip contents
// diverge from a reference image.
type MismatchError struct {
	Offset int
	Want   byte
	Got    byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("contents differ at offset %d: image 0x%02X, chip 0x%02X",
		e.Offset, e.Want, e.Got)
}
