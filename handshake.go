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
	"fmt"
	"time"
)

// HandshakeConfig bounds the safe-mode acknowledge poll that brackets
// every strobe edge.
type HandshakeConfig struct {
	// MaxAttempts is the number of status samples taken before the
	// handshake is declared dead.
	MaxAttempts int
	// InitialBackoff is the wait after the first failed sample.
	InitialBackoff time.Duration
	// BackoffMultiplier scales the wait after each failed sample.
	BackoffMultiplier float64
}

// DefaultHandshakeConfig returns the handshake timing the chip is
// known to meet: four samples backed off at 125us, 250us, 500us, 1ms.
func DefaultHandshakeConfig() *HandshakeConfig {
	return &HandshakeConfig{
		MaxAttempts:       4,
		InitialBackoff:    125 * time.Microsecond,
		BackoffMultiplier: 2.0,
	}
}

// awaitAck polls the status acknowledge line until it reaches the
// wanted level. Each failed sample is followed by a backoff sleep,
// the last one included; the chip-side latch needs the settle time
// even when the host is about to give up.
func awaitAck(t Transport, cfg *HandshakeConfig, high bool) error {
	backoff := cfg.InitialBackoff
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		status, err := t.Sample()
		if err != nil {
			return fmt.Errorf("handshake sample: %w", err)
		}
		if (status&StatusAckMask != 0) == high {
			return nil
		}
		time.Sleep(backoff)
		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
	}
	if high {
		return fmt.Errorf("%w: acknowledge line stuck low", ErrHandshakeTimeout)
	}
	return fmt.Errorf("%w: acknowledge line stuck high", ErrHandshakeTimeout)
}
