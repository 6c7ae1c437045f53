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
	"os"

	"github.com/gcmodkit/go-vipergc/flashops"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Dump the flash contents to a file",
	Long: `Read the full 128 KiB flash contents and write them to the given file.

If the read fails partway, whatever was read so far is still saved so
the dump can be inspected.`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func runRead(_ *cobra.Command, args []string) error {
	path := args[0]

	device, cleanup, err := openDevice()
	if err != nil {
		return &runError{err}
	}
	defer cleanup()

	printer := &progressPrinter{}
	ops := flashops.New(device, flashops.WithProgressHandler(printer.handle))

	fmt.Printf("Dumping flash to %s\n", path)
	img, err := ops.ReadImage()
	fmt.Println()
	if err != nil {
		if img != nil && img.Len() > 0 {
			if saveErr := img.Save(path); saveErr != nil {
				fmt.Fprintf(os.Stderr, "%s\n", warnStyle.Render(
					fmt.Sprintf("could not save partial dump: %v", saveErr)))
			} else {
				fmt.Println(warnStyle.Render(
					fmt.Sprintf("saved partial dump of %d bytes to %s", img.Len(), path)))
			}
		}
		return &runError{err}
	}

	if err := img.Save(path); err != nil {
		return &runError{err}
	}
	fmt.Println(successStyle.Render("Read complete."))
	return nil
}
