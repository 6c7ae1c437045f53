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

// viperflash reads, writes and verifies the flash chip of a Viper GC
// modchip through a parallel port or an Arduino serial bridge.
package main

import (
	"errors"
	"fmt"
	"os"

	vipergc "github.com/gcmodkit/go-vipergc"
)

// runError marks a failure of the device operation itself, as opposed
// to a usage mistake. The two get different exit codes.
type runError struct {
	err error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	err := rootCmd.Execute()

	// The session log is opened by --debug and has to be closed on
	// the failure paths too; Close is a no-op when none is open.
	if cerr := vipergc.CloseSessionLog(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Failed to close session log: %v\n", cerr)
	}

	if err == nil {
		return 0
	}

	var rerr *runError
	if errors.As(err, &rerr) {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("error:"), rerr.err)
		return 1
	}

	// Everything else came out of argument parsing.
	fmt.Fprintln(os.Stderr, err)
	fmt.Fprintln(os.Stderr, "Run 'viperflash --help' for usage.")
	return 2
}
