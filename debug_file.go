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
	"io"
	"os"
	"runtime"
	"strings"
	"time"
)

// A flashing session against real hardware is hard to reproduce, so
// every run can leave a timestamped log behind for postmortem reading.
// At most one session log is open at a time; the tool is strictly
// single-device, so there is no need for anything finer.
var (
	sessionLogFile   *os.File
	sessionLogPath   string
	sessionLogWriter io.Writer
)

// InitSessionLog opens a vipergc_YYYYMMDD_HHMMSS.log file in the
// current directory and routes all Debugf output into it. Returns the
// path for display to the operator.
func InitSessionLog() (string, error) {
	filename := fmt.Sprintf("vipergc_%s.log", time.Now().Format("20060102_150405"))

	logFile, err := os.Create(filename) //nolint:gosec // filename is constructed internally, not user input
	if err != nil {
		return "", fmt.Errorf("failed to create session log: %w", err)
	}

	sessionLogFile = logFile
	sessionLogPath = filename
	sessionLogWriter = logFile
	writeSessionHeader(logFile)

	return filename, nil
}

// CloseSessionLog writes the session footer and closes the log.
// Calling it without an open session is a no-op.
func CloseSessionLog() error {
	if sessionLogFile == nil {
		return nil
	}

	stamp := time.Now().Format("15:04:05.000")
	_, _ = fmt.Fprintf(sessionLogWriter, "\n%s === Session ended ===\n", stamp)

	err := sessionLogFile.Close()
	sessionLogFile = nil
	sessionLogPath = ""
	sessionLogWriter = nil
	if err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

// GetSessionLogPath returns the path of the open session log, or the
// empty string when no session is active.
func GetSessionLogPath() string {
	return sessionLogPath
}

// writeSessionHeader records enough environment detail to make sense
// of a log mailed in from someone else's machine.
func writeSessionHeader(writer io.Writer) {
	_, _ = fmt.Fprint(writer, "=== Viper GC Debug Session Log ===\n")
	_, _ = fmt.Fprintf(writer, "Started: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(writer, "PID: %d\n", os.Getpid())
	_, _ = fmt.Fprintf(writer, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(writer, "Go Version: %s\n", runtime.Version())
	if exe, err := os.Executable(); err == nil {
		_, _ = fmt.Fprintf(writer, "Executable: %s\n", exe)
	}
	_, _ = fmt.Fprintf(writer, "Command Line: %s\n", strings.Join(os.Args, " "))
	_, _ = fmt.Fprint(writer, "==================================\n\n")
}
