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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportError(t *testing.T) {
	t.Parallel()

	inner := errors.New("device or resource busy")

	withPort := NewTransportError("open", "/dev/ttyACM0", inner)
	assert.Equal(t, "open /dev/ttyACM0: device or resource busy", withPort.Error())
	assert.ErrorIs(t, withPort, inner)

	withoutPort := NewTransportError("sample", "", inner)
	assert.Equal(t, "sample: device or resource busy", withoutPort.Error())
}

func TestTransportErrorUnwrapsThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("read command: %w", NewTimeoutError("read", "/dev/ttyACM0"))

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "read", terr.Op)
	assert.ErrorIs(t, err, ErrTransportTimeout)
}

func TestIsTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{
			name: "Transport_Timeout",
			err:  NewTimeoutError("sample", "/dev/ttyUSB0"),
			want: true,
		},
		{
			name: "Handshake_Timeout",
			err:  fmt.Errorf("pentad 0x05: %w", ErrHandshakeTimeout),
			want: true,
		},
		{
			name: "Other_Error",
			err:  ErrTransportClosed,
			want: false,
		},
		{
			name: "Nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTimeout(tt.err))
		})
	}
}

func TestMismatchError(t *testing.T) {
	t.Parallel()

	err := &MismatchError{Offset: 41, Want: 0xAB, Got: 0xFF}
	assert.Equal(t, "contents differ at offset 41: image 0xAB, chip 0xFF", err.Error())

	var merr *MismatchError
	wrapped := fmt.Errorf("compare: %w", err)
	require.ErrorAs(t, wrapped, &merr)
	assert.Equal(t, 41, merr.Offset)
}
