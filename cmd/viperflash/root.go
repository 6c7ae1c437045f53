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
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	vipergc "github.com/gcmodkit/go-vipergc"
	"github.com/gcmodkit/go-vipergc/flashops"
	"github.com/gcmodkit/go-vipergc/transport/bridge"
	"github.com/gcmodkit/go-vipergc/transport/parport"
	"github.com/spf13/cobra"
)

var (
	flagPort    string
	flagSerial  string
	flagUnsafe  bool
	flagDebug   bool
	flagTimeout time.Duration
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

var rootCmd = &cobra.Command{
	Use:   "viperflash",
	Short: "Viper GC modchip flash programmer",
	Long: `viperflash - Flash programmer for the Viper GC GameCube modchip.

Reads, writes and verifies the 128 KiB flash chip through the modchip's
five-wire programming interface.

Connection modes:
  Parallel: --port 378 (hex I/O base address, needs root or raw I/O rights)
  Serial:   --serial /dev/ttyACM0 (Arduino bridge, fixed 1000000 baud)

Image files ending in .hex or .ihx are parsed as Intel HEX; everything
else is written to the chip byte for byte.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagDebug {
			vipergc.SetDebugEnabled(true)
			if path, err := vipergc.InitSessionLog(); err == nil {
				fmt.Printf("Session log: %s\n", path)
			} else {
				fmt.Fprintf(os.Stderr, "Failed to create session log: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPort, "port", "p", "378",
		"Parallel port base address in hex")
	rootCmd.PersistentFlags().StringVarP(&flagSerial, "serial", "s", "",
		"Serial device of the Arduino bridge (overrides --port)")
	rootCmd.PersistentFlags().BoolVarP(&flagUnsafe, "unsafe", "u", false,
		"Skip the acknowledge handshake after each strobe")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", vipergc.DefaultTimeout,
		"Timeout per wire exchange")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")
}

// parsePortAddress parses a parallel port base address given in hex,
// with or without a 0x prefix.
func parsePortAddress(s string) (uint16, error) {
	raw := strings.TrimPrefix(strings.ToLower(s), "0x")
	val, err := strconv.ParseUint(raw, 16, 16)
	if err != nil || val == 0 {
		return 0, fmt.Errorf("invalid port address %q, want a hex I/O address such as 378", s)
	}
	return uint16(val), nil
}

func openTransport() (vipergc.Transport, error) {
	if flagSerial != "" {
		return bridge.New(flagSerial)
	}

	base, err := parsePortAddress(flagPort)
	if err != nil {
		return nil, err
	}
	return parport.New(base)
}

// openDevice builds the transport and device from the global flags.
// The returned cleanup closes the transport.
func openDevice() (*vipergc.Device, func(), error) {
	transport, err := openTransport()
	if err != nil {
		return nil, nil, err
	}

	if flagUnsafe && vipergc.HasCapability(transport, vipergc.CapabilityRemoteHandshake) {
		fmt.Println(warnStyle.Render(
			"warning: the bridge firmware always runs the acknowledge handshake, --unsafe has no effect here"))
	}

	device, err := vipergc.New(transport,
		vipergc.WithSafeMode(!flagUnsafe),
		vipergc.WithTimeout(flagTimeout),
	)
	if err != nil {
		_ = transport.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := transport.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close transport: %v\n", err)
		}
	}
	return device, cleanup, nil
}

// progressPrinter renders operation progress on the terminal. Each
// phase gets a headline; byte progress rewrites a percentage in place.
type progressPrinter struct {
	phase   flashops.Phase
	lastPct int
}

func (pp *progressPrinter) handle(p flashops.Progress) {
	if p.Phase != pp.phase {
		if pp.phase != "" {
			fmt.Println()
		}
		pp.phase = p.Phase
		pp.lastPct = -1
		fmt.Println(phaseStyle.Render(phaseLabel(p.Phase)))
	}
	if p.Total <= 0 {
		return
	}
	if pct := p.Percent(); pct != pp.lastPct {
		pp.lastPct = pct
		fmt.Printf("\r%3d%% done", pct)
	}
}

func phaseLabel(phase flashops.Phase) string {
	switch phase {
	case flashops.PhaseReading:
		return "Reading flash contents..."
	case flashops.PhaseErasing:
		return "Erasing flash..."
	case flashops.PhaseWriting:
		return "Programming flash..."
	case flashops.PhaseComparing:
		return "Comparing flash contents..."
	default:
		return string(phase)
	}
}
