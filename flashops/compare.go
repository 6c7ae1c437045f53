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

// CompareImage checks the chip contents against the image, byte for
// byte over the image length. The first difference is reported as a
// MismatchError. The chip is left in read mode with the cursor past
// the compared range; callers wanting a clean state reset explicitly.
func (o *Operations) CompareImage(img *vipergc.Image) error {
	if img.Len() == 0 {
		return fmt.Errorf("%w: image is empty", vipergc.ErrReadFailed)
	}

	if err := o.preflight(); err != nil {
		return err
	}
	if err := o.device.InitReadMode(); err != nil {
		return err
	}

	want := img.Bytes()
	if bs, ok := o.bulkStreamer(); ok {
		return o.compareBulk(bs, want)
	}
	return o.compareBytes(want)
}

func (o *Operations) compareBulk(bs vipergc.BulkStreamer, want []byte) error {
	got := make([]byte, len(want))
	if _, err := bs.BulkRead(got, o.progressFunc(PhaseComparing)); err != nil {
		return fmt.Errorf("%w: %w", vipergc.ErrReadFailed, err)
	}
	for i := range want {
		if got[i] != want[i] {
			return &vipergc.MismatchError{Offset: i, Want: want[i], Got: got[i]}
		}
	}
	return nil
}

func (o *Operations) compareBytes(want []byte) error {
	interval := progressInterval(len(want))
	for i, w := range want {
		if i%interval == 0 {
			o.report(PhaseComparing, i, len(want))
		}
		got, err := o.device.ReadByte()
		if err != nil {
			return fmt.Errorf("%w at address 0x%05X: %w", vipergc.ErrReadFailed, i, err)
		}
		if got != w {
			return &vipergc.MismatchError{Offset: i, Want: w, Got: got}
		}
	}
	o.report(PhaseComparing, len(want), len(want))
	return nil
}
