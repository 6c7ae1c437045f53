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

// assertFault wraps a transport and fails Assert calls from a given
// 1-based call number, either once or from then on.
type assertFault struct {
	vipergc.Transport
	failFrom int
	once     bool
	calls    int
	err      error
}

func (f *assertFault) Assert(bits byte) error {
	f.calls++
	if f.calls == f.failFrom || (!f.once && f.calls > f.failFrom) {
		return f.err
	}
	return f.Transport.Assert(bits)
}

func TestWriteImage_PerByte(t *testing.T) {
	t.Parallel()

	device, chip := chipDevice(t, fastErase)
	data := []byte{0x00, 0x01, 0x42, 0x80, 0xAB, 0x10, 0x7F, 0xFF, 0xFE, 0x55}
	img, err := vipergc.NewImage(data)
	require.NoError(t, err)

	log := &progressLog{}
	ops := New(device, WithProgressHandler(log.record))

	require.NoError(t, ops.WriteImage(img))

	// The 0xFF at offset 7 is covered by the erase, so nine of the
	// ten bytes are programmed.
	assert.Equal(t, 9, chip.Writes())
	assert.Equal(t, 1, chip.EraseCycles())
	assert.Zero(t, chip.WritesBeforeErase())

	flash := chip.Flash()
	assert.Equal(t, data, flash[:len(data)])
	assert.Equal(t, byte(0xFF), flash[len(data)])

	// Exact wire traffic: reset 1 + ident 3 + erase burst 13 + two
	// settle polls of 14 + nine writes of 9 + trailing reset 1 is
	// 127 pentads, each a setup and a strobe pattern.
	assert.Equal(t, 254, chip.Asserts())
	assert.Equal(t, 2, chip.ReadsServed())
	assert.Zero(t, chip.StrobeViolations())
	assert.Zero(t, chip.ValueMismatches())
	assert.Equal(t, vipergc.ModeIdle, device.Mode())

	require.NotEmpty(t, log.reports)
	assert.Equal(t, Progress{Phase: PhaseErasing}, log.reports[0])
	writing := log.phaseReports(PhaseWriting)
	require.Len(t, writing, 11)
	assert.Equal(t, Progress{Phase: PhaseWriting, Done: 10, Total: 10}, writing[len(writing)-1])
}

func TestWriteImage_Bulk(t *testing.T) {
	t.Parallel()

	device, sim := bridgeDevice(t, fastErase)
	data := make([]byte, 10240)
	for i := range data {
		data[i] = byte(i%251) + 1
	}
	img, err := vipergc.NewImage(data)
	require.NoError(t, err)

	log := &progressLog{}
	ops := New(device, WithProgressHandler(log.record))

	require.NoError(t, ops.WriteImage(img))

	chip := sim.Chip()
	assert.Equal(t, 1, chip.EraseCycles())
	assert.Equal(t, len(data), chip.Writes())
	assert.Zero(t, chip.WritesBeforeErase())

	flash := chip.Flash()
	assert.Equal(t, data, flash[:len(data)])
	assert.Equal(t, byte(0xFF), flash[len(data)])
	assert.Equal(t, vipergc.ModeIdle, device.Mode())

	// One report per 60-byte chunk.
	writing := log.phaseReports(PhaseWriting)
	require.Len(t, writing, 171)
	assert.Equal(t, Progress{Phase: PhaseWriting, Done: len(data), Total: len(data)}, writing[len(writing)-1])
}

func TestWriteImage_Empty(t *testing.T) {
	t.Parallel()

	device, chip := chipDevice(t)
	img, err := vipergc.NewImage(nil)
	require.NoError(t, err)

	err = New(device).WriteImage(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, vipergc.ErrWriteFailed)
	assert.Contains(t, err.Error(), "image is empty")
	// Rejected before any wire traffic.
	assert.Zero(t, chip.Asserts())
}

func TestWriteImage_RetriesFailedByteOnce(t *testing.T) {
	t.Parallel()

	chip := hwsim.NewVirtualChip()
	// In unsafe mode every pentad is two asserts. Reset and ident
	// are 4 pentads, the erase burst 13, the two settle polls 14
	// each, so the first write sequence starts at assert 91.
	faulty := &assertFault{
		Transport: chip,
		failFrom:  91,
		once:      true,
		err:       errors.New("transient wire glitch"),
	}
	device, err := vipergc.New(faulty,
		vipergc.WithSafeMode(false),
		fastErase,
	)
	require.NoError(t, err)

	img, err := vipergc.NewImage([]byte{0x42})
	require.NoError(t, err)

	require.NoError(t, New(device).WriteImage(img))

	// The glitch hit before the chip latched anything, and the
	// retry programmed the byte cleanly.
	assert.Equal(t, 1, chip.Writes())
	assert.Equal(t, byte(0x42), chip.Flash()[0])
	assert.Zero(t, chip.StrobeViolations())
}

func TestWriteImage_GivesUpAfterRetry(t *testing.T) {
	t.Parallel()

	chip := hwsim.NewVirtualChip()
	wireErr := errors.New("wire stuck low")
	faulty := &assertFault{Transport: chip, failFrom: 91, err: wireErr}
	device, err := vipergc.New(faulty,
		vipergc.WithSafeMode(false),
		fastErase,
	)
	require.NoError(t, err)

	img, err := vipergc.NewImage([]byte{0x42})
	require.NoError(t, err)

	err = New(device).WriteImage(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, vipergc.ErrWriteFailed)
	assert.ErrorIs(t, err, wireErr)
	assert.Contains(t, err.Error(), "0x00000")
	assert.Zero(t, chip.Writes())
}

func TestWriteImage_WaitsForEraseToSettle(t *testing.T) {
	t.Parallel()

	device, chip := chipDevice(t, fastErase)
	chip.SetSettlePolls(3)

	img, err := vipergc.NewImage([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	require.NoError(t, New(device).WriteImage(img))

	// Three unstable reads, then two matching stable ones.
	assert.Equal(t, 5, chip.ReadsServed())
	assert.Equal(t, 1, chip.EraseCycles())
	assert.Equal(t, 3, chip.Writes())
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, chip.Flash()[:3])
}

func TestWriteImage_ErasePollCap(t *testing.T) {
	t.Parallel()

	device, chip := chipDevice(t, vipergc.WithErasePolicy(&vipergc.ErasePolicy{
		MaxPolls: 3,
	}))
	chip.SetSettlePolls(10)

	img, err := vipergc.NewImage([]byte{0x01})
	require.NoError(t, err)

	err = New(device).WriteImage(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, vipergc.ErrWriteFailed)
	assert.Contains(t, err.Error(), "erase")
	assert.Zero(t, chip.Writes())
}
