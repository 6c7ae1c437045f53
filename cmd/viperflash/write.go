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

package main

import (
	"fmt"

	vipergc "github.com/gcmodkit/go-vipergc"
	"github.com/gcmodkit/go-vipergc/flashops"
	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write <file>",
	Short: "Erase the chip and program an image into it",
	Long: `Erase the flash chip and program the given image file into it.

The image may be smaller than the chip; the remainder is left erased.
Raw binaries and Intel HEX files (.hex, .ihx) are both accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)
}

func runWrite(_ *cobra.Command, args []string) error {
	path := args[0]

	img, err := vipergc.LoadImage(path)
	if err != nil {
		return &runError{err}
	}

	device, cleanup, err := openDevice()
	if err != nil {
		return &runError{err}
	}
	defer cleanup()

	printer := &progressPrinter{}
	ops := flashops.New(device, flashops.WithProgressHandler(printer.handle))

	fmt.Printf("Writing %s (%d bytes) to flash\n", path, img.Len())
	if err := ops.WriteImage(img); err != nil {
		fmt.Println()
		return &runError{err}
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Flash complete."))
	return nil
}
