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

//go:build !linux

// Package parport drives the chip wires through a raw PC parallel
// port. Raw I/O port access only exists on linux; on other platforms
// opening the port fails and the serial bridge transport is the way
// to talk to the chip.
package parport

import (
	"errors"

	vipergc "github.com/gcmodkit/go-vipergc"
)

// ErrUnsupported reports that raw parallel port access is not
// available on this platform.
var ErrUnsupported = errors.New("parallel port access requires linux")

// New always fails on this platform.
func New(_ uint16) (vipergc.Transport, error) {
	return nil, ErrUnsupported
}
