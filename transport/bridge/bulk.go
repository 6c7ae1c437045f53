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

package bridge

import (
	"fmt"

	vipergc "github.com/gcmodkit/go-vipergc"
	"github.com/gcmodkit/go-vipergc/internal/frame"
)

// BulkRead declares a session and drains the bridge's byte stream
// into buf, returning how many bytes arrived. The bridge runs the
// per-byte chip protocol on its own; the host only keeps up with the
// serial stream. Progress is reported after every drain.
func (t *Transport) BulkRead(buf []byte, progress vipergc.ProgressFunc) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, vipergc.NewTransportError("bulk read", t.portName, vipergc.ErrTransportClosed)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	hdr, err := frame.EncodeBulkHeader(frame.OpBulkRead, len(buf))
	if err != nil {
		return 0, vipergc.NewTransportError("bulk read", t.portName, err)
	}
	if err := t.writeAll(hdr[:], "bulk read"); err != nil {
		return 0, err
	}

	filled := 0
	for filled < len(buf) {
		n, err := t.port.Read(buf[filled:])
		if err != nil {
			return filled, vipergc.NewTransportError("bulk read", t.portName,
				fmt.Errorf("%w: %w", vipergc.ErrTransportRead, err))
		}
		if n == 0 {
			return filled, vipergc.NewTimeoutError("bulk read", t.portName)
		}
		filled += n
		if progress != nil {
			progress(filled, len(buf))
		}
	}
	return filled, nil
}

// BulkWrite declares a session and streams data in fixed chunks, the
// final one zero-padded. The bridge acknowledges every chunk with a
// single byte that must equal the chunk size; any other value, or a
// missed acknowledgment, aborts the transfer. There is no resume, a
// failed bulk write means starting the whole write over.
func (t *Transport) BulkWrite(data []byte, progress vipergc.ProgressFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return vipergc.NewTransportError("bulk write", t.portName, vipergc.ErrTransportClosed)
	}
	if len(data) == 0 {
		return nil
	}

	hdr, err := frame.EncodeBulkHeader(frame.OpBulkWrite, len(data))
	if err != nil {
		return vipergc.NewTransportError("bulk write", t.portName, err)
	}
	if err := t.writeAll(hdr[:], "bulk write"); err != nil {
		return err
	}

	// Chunk acknowledgments arrive only after the bridge has pushed
	// the whole chunk through the pentad protocol, so they get a
	// longer wait than ordinary replies.
	if err := t.port.SetReadTimeout(bulkAckTimeout); err != nil {
		return fmt.Errorf("failed to set ack timeout on %s: %w", t.portName, err)
	}
	defer func() { _ = t.port.SetReadTimeout(t.timeout) }()

	chunks := frame.NumChunks(len(data))
	for i := 0; i < chunks; i++ {
		off := i * frame.ChunkSize
		end := off + frame.ChunkSize
		if end > len(data) {
			end = len(data)
		}

		if end-off < frame.ChunkSize {
			padded := frame.PadChunk(data[off:end])
			err = t.writeAll(padded[:], "bulk write")
		} else {
			err = t.writeAll(data[off:end], "bulk write")
		}
		if err != nil {
			return err
		}

		ack, err := t.readByte()
		if err != nil {
			return fmt.Errorf("%w: chunk %d/%d unacknowledged: %w",
				vipergc.ErrWriteFailed, i+1, chunks, err)
		}
		if ack != frame.ChunkAck {
			return fmt.Errorf("%w: chunk %d/%d acknowledged with %d, want %d",
				vipergc.ErrWriteFailed, i+1, chunks, ack, frame.ChunkAck)
		}
		if progress != nil {
			progress(end, len(data))
		}
	}
	return nil
}
