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
	"fmt"

	vipergc "github.com/gcmodkit/go-vipergc"
)

// ReadImage reads the full flash contents. On error the returned
// image holds whatever was read before the failure, so callers can
// still save a partial dump. The chip is reset afterwards in either
// case, best effort.
func (o *Operations) ReadImage() (*vipergc.Image, error) {
	if err := o.preflight(); err != nil {
		return nil, err
	}

	buf := make([]byte, vipergc.DeviceSize)
	n, readErr := o.readInto(buf)

	// The chip is left mid-stream on failure and at the end of its
	// address space on success. Reset either way so the next
	// operation starts clean.
	if err := o.device.Reset(); err != nil {
		vipergc.Debugf("flashops: reset after read failed: %v", err)
	}

	img, err := vipergc.NewImage(buf[:n])
	if err != nil {
		return nil, err
	}
	if readErr != nil {
		return img, fmt.Errorf("%w: %w", vipergc.ErrReadFailed, readErr)
	}
	return img, nil
}

// readInto fills buf from the chip and returns how many bytes made it.
func (o *Operations) readInto(buf []byte) (int, error) {
	if err := o.device.InitReadMode(); err != nil {
		return 0, err
	}

	if bs, ok := o.bulkStreamer(); ok {
		return bs.BulkRead(buf, o.progressFunc(PhaseReading))
	}

	interval := progressInterval(len(buf))
	for i := range buf {
		if i%interval == 0 {
			o.report(PhaseReading, i, len(buf))
		}
		b, err := o.device.ReadByte()
		if err != nil {
			return i, fmt.Errorf("at address 0x%05X: %w", i, err)
		}
		buf[i] = b
	}
	o.report(PhaseReading, len(buf), len(buf))
	return len(buf), nil
}
