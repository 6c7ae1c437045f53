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

//nolint:paralleltest // Tests modify package-level session log state, cannot run in parallel
package vipergc

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanupSessionLog ensures session log state is clean after tests.
func cleanupSessionLog(t *testing.T) {
	t.Helper()
	if sessionLogFile != nil {
		_ = sessionLogFile.Close()
	}
	sessionLogFile = nil
	sessionLogPath = ""
	sessionLogWriter = nil
}

// chdirTemp moves the test into a temp directory so log files do not
// land in the source tree.
func chdirTemp(t *testing.T) {
	t.Helper()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		cleanupSessionLog(t)
		_ = os.Chdir(origDir)
	})
}

func TestInitSessionLog_CreatesFile(t *testing.T) {
	chdirTemp(t)

	path, err := InitSessionLog()
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = os.Stat(path)
	require.NoError(t, err, "Log file should exist")

	matched, err := regexp.MatchString(`^vipergc_\d{8}_\d{6}\.log$`, path)
	require.NoError(t, err)
	assert.True(t, matched, "Filename should match vipergc_YYYYMMDD_HHMMSS.log pattern, got: %s", path)
}

func TestSessionLog_HeaderAndFooter(t *testing.T) {
	chdirTemp(t)

	path, err := InitSessionLog()
	require.NoError(t, err)
	require.NoError(t, CloseSessionLog())

	content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
	require.NoError(t, err)

	contentStr := string(content)
	assert.Contains(t, contentStr, "=== Viper GC Debug Session Log ===")
	assert.Contains(t, contentStr, "Started:")
	assert.Contains(t, contentStr, "PID:")
	assert.Contains(t, contentStr, "OS:")
	assert.Contains(t, contentStr, "Go Version:")
	assert.Contains(t, contentStr, "Command Line:")
	assert.Contains(t, contentStr, "=== Session ended ===")
}

func TestCloseSessionLog_NilFile(t *testing.T) {
	t.Cleanup(func() {
		cleanupSessionLog(t)
	})

	sessionLogFile = nil
	sessionLogPath = ""
	sessionLogWriter = nil

	// Should not error or panic when no file is open
	assert.NoError(t, CloseSessionLog())
}

func TestGetSessionLogPath(t *testing.T) {
	chdirTemp(t)

	assert.Empty(t, GetSessionLogPath())

	path, err := InitSessionLog()
	require.NoError(t, err)
	assert.Equal(t, path, GetSessionLogPath())

	require.NoError(t, CloseSessionLog())
	assert.Empty(t, GetSessionLogPath())
}

func TestSessionLog_InitCloseCycles(t *testing.T) {
	chdirTemp(t)

	paths := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		path, err := InitSessionLog()
		require.NoError(t, err, "Init cycle %d failed", i)
		paths = append(paths, path)

		// Write something to verify the log is working
		Debugf("erase poll %d", i)

		require.NoError(t, CloseSessionLog(), "Close cycle %d failed", i)
		assert.Empty(t, GetSessionLogPath())
		assert.Nil(t, sessionLogWriter)
	}

	for i, path := range paths {
		content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
		require.NoError(t, err, "Failed to read log file %d", i)
		assert.Contains(t, string(content), "erase poll")
	}
}

func TestWriteSessionHeader_ContentFormat(t *testing.T) {
	var buf strings.Builder

	writeSessionHeader(&buf)

	content := buf.String()
	assert.True(t, strings.HasPrefix(content, "=== Viper GC Debug Session Log ==="))
	assert.Contains(t, content, "Started:")
	assert.Contains(t, content, "PID:")
}
