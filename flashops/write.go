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

// WriteImage erases the chip and programs the image into it. The
// image may be shorter than the device; the erased remainder stays
// 0xFF. A failed write leaves the chip in write mode so a retry can
// be attempted without another erase cycle; the reset happens only
// after a fully successful write.
func (o *Operations) WriteImage(img *vipergc.Image) error {
	if img.Len() == 0 {
		return fmt.Errorf("%w: image is empty", vipergc.ErrWriteFailed)
	}

	if err := o.preflight(); err != nil {
		return err
	}

	o.report(PhaseErasing, 0, 0)
	if err := o.device.EraseChip(); err != nil {
		return fmt.Errorf("erase: %w", err)
	}

	data := img.Bytes()
	if bs, ok := o.bulkStreamer(); ok {
		if err := bs.BulkWrite(data, o.progressFunc(PhaseWriting)); err != nil {
			return err
		}
	} else if err := o.writeBytes(data); err != nil {
		return err
	}

	return o.device.Reset()
}

// writeBytes programs data one byte at a time. A byte that fails is
// retried once before the write is abandoned.
func (o *Operations) writeBytes(data []byte) error {
	interval := progressInterval(len(data))
	for i, b := range data {
		if i%interval == 0 {
			o.report(PhaseWriting, i, len(data))
		}
		if err := o.device.WriteByte(b, i); err != nil {
			vipergc.Debugf("flashops: write 0x%02X at 0x%05X failed, retrying: %v", b, i, err)
			if err := o.device.WriteByte(b, i); err != nil {
				return fmt.Errorf("%w at address 0x%05X: %w", vipergc.ErrWriteFailed, i, err)
			}
		}
	}
	o.report(PhaseWriting, len(data), len(data))
	return nil
}
