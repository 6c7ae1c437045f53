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
	"time"
)

var debugEnabled = os.Getenv("VIPERGC_DEBUG") != "" || os.Getenv("DEBUG") != ""

// Debugf records protocol-level events: command sequences, mode
// transitions, retry decisions. Byte-level wire traffic is deliberately
// not traced here; at protocol speed it would drown everything else.
// Messages always land in the session log (when one is open) with a
// timestamp, and additionally on stderr when debug mode is on.
func Debugf(format string, args ...any) {
	debugLog(fmt.Sprintf(format, args...))
}

// Debugln is Debugf for pre-formatted arguments.
func Debugln(args ...any) {
	debugLog(fmt.Sprint(args...))
}

func debugLog(message string) {
	if sessionLogWriter != nil {
		stamp := time.Now().Format("15:04:05.000")
		_, _ = fmt.Fprintf(sessionLogWriter, "%s DEBUG: %s\n", stamp, message)
	}
	if debugEnabled {
		_, _ = fmt.Fprintf(os.Stderr, "DEBUG: %s\n", message)
	}
}

// SetDebugEnabled toggles stderr debug output at runtime, overriding
// whatever the environment selected at startup.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}
