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

package flashops

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vipergc "github.com/gcmodkit/go-vipergc"
	"github.com/gcmodkit/go-vipergc/internal/hwsim"
)

// sampleBudget wraps a transport and fails Sample once a call budget
// runs out, to cut a per-byte read off mid-stream.
type sampleBudget struct {
	vipergc.Transport
	remaining int
	err       error
}

func (s *sampleBudget) Sample() (byte, error) {
	if s.remaining <= 0 {
		return 0, s.err
	}
	s.remaining--
	return s.Transport.Sample()
}

func TestReadImage_PerByte(t *testing.T) {
	t.Parallel()

	device, chip := chipDevice(t)
	pattern := make([]byte, 300)
	for i := range pattern {
		pattern[i] = byte(i*3 + 1)
	}
	chip.SetFlash(pattern)

	log := &progressLog{}
	ops := New(device, WithProgressHandler(log.record))

	img, err := ops.ReadImage()
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, vipergc.DeviceSize, img.Len())
	got := img.Bytes()
	assert.Equal(t, pattern, got[:len(pattern)])
	for i := len(pattern); i < len(got); i += 9973 {
		assert.Equal(t, byte(0xFF), got[i], "offset %d", i)
	}

	// The whole address space went over the wire, clean, followed
	// by the trailing reset.
	assert.True(t, chip.Identified())
	assert.Equal(t, vipergc.DeviceSize, chip.ReadsServed())
	assert.Zero(t, chip.StrobeViolations())
	assert.Zero(t, chip.BadAcks())
	assert.Zero(t, chip.ValueMismatches())
	assert.Equal(t, vipergc.ModeIdle, device.Mode())

	// One report per percent plus the final one.
	reports := log.phaseReports(PhaseReading)
	require.Len(t, reports, 102)
	assert.Equal(t, Progress{Phase: PhaseReading, Done: 0, Total: vipergc.DeviceSize}, reports[0])
	assert.Equal(t, Progress{Phase: PhaseReading, Done: vipergc.DeviceSize, Total: vipergc.DeviceSize}, reports[len(reports)-1])
}

func TestReadImage_Bulk(t *testing.T) {
	t.Parallel()

	device, sim := bridgeDevice(t)
	pattern := make([]byte, vipergc.DeviceSize)
	for i := range pattern {
		pattern[i] = byte(i >> 8 ^ i)
	}
	sim.Chip().SetFlash(pattern)

	log := &progressLog{}
	ops := New(device, WithProgressHandler(log.record))

	img, err := ops.ReadImage()
	require.NoError(t, err)

	assert.Equal(t, pattern, img.Bytes())
	assert.True(t, sim.Chip().Identified())
	// Bulk transfers bypass the per-byte read protocol entirely.
	assert.Zero(t, sim.Chip().ReadsServed())
	assert.Equal(t, vipergc.ModeIdle, device.Mode())

	// The simulator answers in one drain, so one report.
	reports := log.phaseReports(PhaseReading)
	require.Len(t, reports, 1)
	assert.Equal(t, Progress{Phase: PhaseReading, Done: vipergc.DeviceSize, Total: vipergc.DeviceSize}, reports[0])
}

func TestReadImage_PartialOnError(t *testing.T) {
	t.Parallel()

	chip := hwsim.NewVirtualChip()
	pattern := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}
	chip.SetFlash(pattern)

	wireErr := errors.New("status line went dead")
	// Unsafe mode reads spend exactly eight samples per byte, so a
	// budget of forty covers five bytes and cuts off the sixth.
	faulty := &sampleBudget{Transport: chip, remaining: 40, err: wireErr}
	device, err := vipergc.New(faulty, vipergc.WithSafeMode(false))
	require.NoError(t, err)

	ops := New(device)

	img, err := ops.ReadImage()
	require.Error(t, err)
	assert.ErrorIs(t, err, vipergc.ErrReadFailed)
	assert.ErrorIs(t, err, wireErr)
	assert.Contains(t, err.Error(), "0x00005")

	// Everything read before the fault is preserved.
	require.NotNil(t, img)
	assert.Equal(t, 5, img.Len())
	assert.Equal(t, pattern[:5], img.Bytes())
}
