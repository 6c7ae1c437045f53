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
	"testing"
)

func TestCommandConstants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		constant byte
		expected byte
	}{
		{"cmdReset", cmdReset, 0x00},
		{"cmdErase", cmdErase, 0x03},
		{"cmdWriteByte", cmdWriteByte, 0x05},
		{"cmdRead", cmdRead, 0x0D},
		{"StatusDataMask", StatusDataMask, 0x10},
		{"StatusAckMask", StatusAckMask, 0x08},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.constant != tt.expected {
				t.Errorf("%s = 0x%02X, want 0x%02X", tt.name, tt.constant, tt.expected)
			}
		})
	}
}

func TestProtocolSequences(t *testing.T) {
	t.Parallel()

	if chipIdentSeq != [3]byte{0xFF, 0x0C, 0x12} {
		t.Errorf("chipIdentSeq = %#v", chipIdentSeq)
	}
	if readCursorSeq != [5]byte{0x11, 0, 0, 0, 0} {
		t.Errorf("readCursorSeq = %#v", readCursorSeq)
	}
	if erasePulseCount != 13 {
		t.Errorf("erasePulseCount = %d, want 13", erasePulseCount)
	}
}

func TestDeviceGeometry(t *testing.T) {
	t.Parallel()

	if DeviceSize != 128*1024 {
		t.Errorf("DeviceSize = %d, want 128 KiB", DeviceSize)
	}
	// The address mask relies on the size being a power of two.
	if DeviceSize&(DeviceSize-1) != 0 {
		t.Error("DeviceSize must be a power of two")
	}
	if DefaultPortAddress != 0x378 {
		t.Errorf("DefaultPortAddress = 0x%X, want 0x378", DefaultPortAddress)
	}
}
