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

// Package flashops provides the high-level device operations: full
// read, erase-and-write, and compare. Every operation opens with a
// reset and the chip identification handshake, and picks the bulk
// transfer path automatically when the transport supports it.
package flashops

import (
	vipergc "github.com/gcmodkit/go-vipergc"
)

// Phase names the stage an operation is in.
type Phase string

const (
	// PhaseReading covers the byte stream out of the chip.
	PhaseReading Phase = "reading"
	// PhaseErasing covers the erase burst and settle polling.
	PhaseErasing Phase = "erasing"
	// PhaseWriting covers programming bytes into the chip.
	PhaseWriting Phase = "writing"
	// PhaseComparing covers checking chip contents against an image.
	PhaseComparing Phase = "comparing"
)

// Progress is a point-in-time report of a running operation. Total
// is zero for phases with no meaningful byte count, such as erasing.
type Progress struct {
	Phase Phase
	Done  int
	Total int
}

// Percent returns the completed percentage, or zero when the phase
// has no byte count.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Done * 100 / p.Total
}

// ProgressHandler receives progress reports during operations.
type ProgressHandler func(Progress)

// Operations provides the high-level flash operations on a device.
type Operations struct {
	device     *vipergc.Device
	onProgress ProgressHandler
}

// Option configures an Operations instance.
type Option func(*Operations)

// WithProgressHandler installs a progress callback.
func WithProgressHandler(handler ProgressHandler) Option {
	return func(o *Operations) {
		o.onProgress = handler
	}
}

// New creates an Operations instance for the given device.
func New(device *vipergc.Device, opts ...Option) *Operations {
	o := &Operations{device: device}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Device returns the underlying device.
func (o *Operations) Device() *vipergc.Device {
	return o.device
}

// preflight resets the chip and runs the identification handshake.
// Every operation starts here; a chip that does not identify is not
// worth talking to. The reset is best effort, identification alone
// decides whether a chip is present.
func (o *Operations) preflight() error {
	if err := o.device.Reset(); err != nil {
		vipergc.Debugf("flashops: preflight reset failed: %v", err)
	}
	return o.device.Identify()
}

// bulkStreamer returns the transport's bulk interface when the
// transport advertises bulk streaming.
func (o *Operations) bulkStreamer() (vipergc.BulkStreamer, bool) {
	transport := o.device.Transport()
	if !vipergc.HasCapability(transport, vipergc.CapabilityBulkStream) {
		return nil, false
	}
	bs, ok := transport.(vipergc.BulkStreamer)
	return bs, ok
}

func (o *Operations) report(phase Phase, done, total int) {
	if o.onProgress != nil {
		o.onProgress(Progress{Phase: phase, Done: done, Total: total})
	}
}

// progressFunc adapts the handler to the transport's bulk callback.
func (o *Operations) progressFunc(phase Phase) vipergc.ProgressFunc {
	if o.onProgress == nil {
		return nil
	}
	return func(done, total int) {
		o.report(phase, done, total)
	}
}

// progressInterval returns the byte stride between per-byte progress
// reports, one percent of the total and never less than one byte.
func progressInterval(total int) int {
	interval := total / 100
	if interval < 1 {
		interval = 1
	}
	return interval
}
