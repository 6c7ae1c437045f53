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
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// Image is a flash image, at most DeviceSize bytes. Writes start at
// address zero; an image shorter than the device leaves the tail
// untouched (erased flash reads 0xFF).
type Image struct {
	data []byte
}

// NewImage wraps data in an Image. The data is copied.
func NewImage(data []byte) (*Image, error) {
	if len(data) > DeviceSize {
		return nil, fmt.Errorf("%w: %d bytes, device holds %d",
			ErrImageTooLarge, len(data), DeviceSize)
	}
	img := &Image{data: make([]byte, len(data))}
	copy(img.data, data)
	return img, nil
}

// LoadImage reads a flash image from disk. Files ending in .hex or
// .ihx are parsed as Intel HEX with unprogrammed gaps filled with
// 0xFF; anything else is taken as a raw binary dump.
func LoadImage(path string) (*Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx":
		return loadHexImage(path)
	default:
		return loadRawImage(path)
	}
}

func loadRawImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	img, err := NewImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func loadHexImage(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Flatten the segments into a single region from address zero up
	// to the highest programmed byte.
	extent := 0
	for _, seg := range mem.GetDataSegments() {
		end := int(seg.Address) + len(seg.Data)
		if end > extent {
			extent = end
		}
	}
	if extent > DeviceSize {
		return nil, fmt.Errorf("%w: %s programs up to 0x%X, device holds 0x%X",
			ErrImageTooLarge, path, extent, DeviceSize)
	}

	data := make([]byte, extent)
	for i := range data {
		data[i] = 0xFF
	}
	for _, seg := range mem.GetDataSegments() {
		copy(data[seg.Address:], seg.Data)
	}
	return &Image{data: data}, nil
}

// Save writes the image to disk as a raw binary dump.
func (img *Image) Save(path string) error {
	if err := os.WriteFile(path, img.data, 0o644); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// Bytes returns the image contents. The slice is the image's backing
// store; callers must not modify it.
func (img *Image) Bytes() []byte {
	return img.data
}

// Len returns the image length in bytes.
func (img *Image) Len() int {
	return len(img.data)
}
