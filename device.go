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

// Package vipergc drives the flash chip of a Viper GC modchip over a
// parallel port or a serial Arduino bridge.
package vipergc

import (
	"errors"
	"fmt"
	"time"
)

// ChipMode tracks which command family the chip accepts next. The
// chip itself keeps this state internally and silently misbehaves on
// out-of-order commands, so the host mirrors it and rejects misuse
// before anything reaches the wire.
type ChipMode int

const (
	// ModeIdle is the state after reset or identification. Only
	// mode-changing commands are valid.
	ModeIdle ChipMode = iota
	// ModeReadCursor means the read cursor is armed and ReadByte
	// will stream consecutive bytes.
	ModeReadCursor
	// ModeWriteReady means an erase cycle has completed and the chip
	// accepts WriteByte sequences.
	ModeWriteReady
)

func (m ChipMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeReadCursor:
		return "read-cursor"
	case ModeWriteReady:
		return "write-ready"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ErasePolicy bounds the erase settle loop. After the erase pulses
// the chip is polled until two consecutive reads agree.
type ErasePolicy struct {
	// MaxPolls caps the number of settle polls. Zero means poll
	// until the chip settles, however long that takes; real erase
	// cycles have no documented upper bound.
	MaxPolls int
	// SettleDelay is slept after the chip reports a stable value,
	// before the first write is attempted.
	SettleDelay time.Duration
}

// DefaultErasePolicy returns the production erase policy: unbounded
// polling and a one second post-erase settle.
func DefaultErasePolicy() *ErasePolicy {
	return &ErasePolicy{
		MaxPolls:    0,
		SettleDelay: time.Second,
	}
}

// DefaultTimeout bounds each blocking transport call unless the
// configuration overrides it.
const DefaultTimeout = time.Second

// DeviceConfig holds the configuration for a Device.
type DeviceConfig struct {
	// Handshake is the safe-mode acknowledge polling schedule.
	Handshake *HandshakeConfig
	// Erase bounds the erase settle loop.
	Erase *ErasePolicy
	// Timeout bounds each blocking transport call. It is pushed to
	// the transport when the device is created.
	Timeout time.Duration
	// SafeMode enables the per-strobe acknowledge handshake. With it
	// off, pentads are blind writes and wire faults go undetected;
	// it exists for bridge firmware that does its own pacing.
	SafeMode bool
}

// DefaultDeviceConfig returns the default device configuration.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		SafeMode:  true,
		Timeout:   DefaultTimeout,
		Handshake: DefaultHandshakeConfig(),
		Erase:     DefaultErasePolicy(),
	}
}

// Device drives the Viper GC chip protocol over a Transport.
// It is not safe for concurrent use; the chip is a single shared
// cursor machine and interleaved commands corrupt its state.
type Device struct {
	transport Transport
	config    *DeviceConfig
	mode      ChipMode
}

// Option configures a Device during New.
type Option func(*Device) error

// WithSafeMode enables or disables the per-strobe handshake.
func WithSafeMode(enabled bool) Option {
	return func(d *Device) error {
		d.config.SafeMode = enabled
		return nil
	}
}

// WithHandshakeConfig replaces the safe-mode polling schedule.
func WithHandshakeConfig(cfg *HandshakeConfig) Option {
	return func(d *Device) error {
		if cfg == nil {
			return errors.New("handshake config cannot be nil")
		}
		if cfg.MaxAttempts < 1 {
			return errors.New("handshake config needs at least one attempt")
		}
		d.config.Handshake = cfg
		return nil
	}
}

// WithErasePolicy replaces the erase settle policy.
func WithErasePolicy(policy *ErasePolicy) Option {
	return func(d *Device) error {
		if policy == nil {
			return errors.New("erase policy cannot be nil")
		}
		if policy.MaxPolls < 0 {
			return errors.New("erase policy max polls cannot be negative")
		}
		d.config.Erase = policy
		return nil
	}
}

// WithTimeout bounds each blocking transport call.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return errors.New("timeout must be positive")
		}
		d.config.Timeout = timeout
		return nil
	}
}

// New creates a Device on the given transport.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, errors.New("transport cannot be nil")
	}
	d := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		mode:      ModeIdle,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if err := transport.SetTimeout(d.config.Timeout); err != nil {
		return nil, fmt.Errorf("failed to set transport timeout: %w", err)
	}
	return d, nil
}

// Transport returns the underlying transport.
func (d *Device) Transport() Transport {
	return d.transport
}

// Mode returns the chip mode the host currently assumes.
func (d *Device) Mode() ChipMode {
	return d.mode
}

// Config returns the active device configuration.
func (d *Device) Config() *DeviceConfig {
	return d.config
}

// sendPentad performs one pentad exchange: assert the value with the
// strobe low, raise the strobe, and in safe mode require the chip to
// acknowledge both edges.
func (d *Device) sendPentad(value byte) error {
	pattern := EncodePentad(value)

	if err := d.transport.Assert(pattern); err != nil {
		return fmt.Errorf("assert pentad 0x%02X: %w", value, err)
	}
	if d.config.SafeMode {
		if err := awaitAck(d.transport, d.config.Handshake, true); err != nil {
			return fmt.Errorf("pentad 0x%02X: %w", value, err)
		}
	}

	if err := d.transport.Assert(pattern | StrobeMask); err != nil {
		return fmt.Errorf("strobe pentad 0x%02X: %w", value, err)
	}
	if d.config.SafeMode {
		if err := awaitAck(d.transport, d.config.Handshake, false); err != nil {
			return fmt.Errorf("pentad 0x%02X: %w", value, err)
		}
	}
	return nil
}

// sendPentads sends a fixed command sequence, stopping at the first
// failed exchange.
func (d *Device) sendPentads(values []byte) error {
	for _, v := range values {
		if err := d.sendPentad(v); err != nil {
			return err
		}
	}
	return nil
}

// Reset returns the chip to its idle state. It is safe in any mode
// and is the first and last thing every operation sends.
func (d *Device) Reset() error {
	if err := d.sendPentad(cmdReset); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	d.mode = ModeIdle
	return nil
}

// Identify sends the identification sequence the chip answers after
// a reset. A chip that fails to acknowledge it is absent, mis-wired,
// or listening on a different port. Without safe mode there are no
// acknowledgments to check, so identification trivially succeeds.
func (d *Device) Identify() error {
	if err := d.sendPentads(chipIdentSeq[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	d.mode = ModeIdle
	Debugln("chip identification acknowledged")
	return nil
}
