//
// Copyright (c) 2014-2019 Cesanta Software Limited
// All rights reserved
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
//
package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/engine"
	"github.com/mongoose-os/rover/cli/flash/plan"
	"github.com/mongoose-os/rover/cli/flash/probe"
	"github.com/mongoose-os/rover/cli/ourutil"
)

const (
	// Width of the "Error" and "Hint" column.
	diagIndent        = 12
	maxHintMismatches = 8
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	hintColor  = color.New(color.FgBlue, color.Bold)
)

// diag holds what is known about the target when an error is reported.
var diag struct {
	chip     *chip.Descriptor
	selector string // set once a probe is being opened
	speed    uint
}

func printBlock(w io.Writer, c *color.Color, title, text string) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	c.Fprintf(w, "%*s", diagIndent, title)
	fmt.Fprintf(w, " %s\n", lines[0])
	for _, l := range lines[1:] {
		fmt.Fprintf(w, "%*s %s\n", diagIndent, "", l)
	}
}

// printError writes err and any hints about what to do about it.
func printError(w io.Writer, err error) {
	printBlock(w, errorColor, "Error", err.Error())
	for _, h := range hints(err) {
		fmt.Fprintln(w)
		printBlock(w, hintColor, "Hint", h)
	}
}

func hints(err error) []string {
	cause := errors.Cause(err)
	switch {
	case chip.IsNotFound(err):
		return []string{
			"Make sure the chip name is spelled correctly.\n" +
				"Run 'rover list-chips' to see the supported chips.",
		}
	case chip.IsAmbiguous(err):
		ae := cause.(*chip.AmbiguousError)
		return []string{"Use the full name, one of:\n  " + strings.Join(ae.Candidates, "\n  ")}
	case plan.IsSegmentOutOfRange(err):
		if diag.chip == nil {
			return nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "The following flash memory is available for the chip '%s':", diag.chip.Name)
		for _, r := range diag.chip.SortedRegions() {
			fmt.Fprintf(&sb, "\n  0x%08x - 0x%08x (%s)", r.Start, r.End(), ourutil.FormatSize(r.Length))
		}
		return []string{sb.String()}
	case engine.IsProbeRejected(err):
		fe := cause.(*engine.FlashError)
		if fe.Op.Kind == plan.OpErase {
			return []string{"Perhaps your chip has write protected sectors that need to be cleared?"}
		}
		return []string{"Perhaps the flash is write protected or was not erased?"}
	case engine.IsProbeCommunication(err):
		var res []string
		if diag.speed > 0 {
			res = append(res, fmt.Sprintf("Try specifying a speed lower than %d kHz with --probe.speed.", diag.speed))
		} else {
			res = append(res, "Try specifying a lower speed with --probe.speed.")
		}
		return append(res, "Check the cabling. If the target sleeps or its firmware reconfigures\n"+
			"the debug pins, try --general.connect-under-reset.")
	case engine.IsMismatch(err):
		me := cause.(*engine.MismatchError)
		var sb strings.Builder
		sb.WriteString("The flash does not hold what was written:")
		for i, m := range me.Mismatches {
			if i == maxHintMismatches {
				fmt.Fprintf(&sb, "\n  ... and %d more", me.Count-uint64(i))
				break
			}
			fmt.Fprintf(&sb, "\n  %s", m)
		}
		sb.WriteString("\nTry again with --flashing.do-chip-erase.")
		return []string{sb.String()}
	case probe.IsMultipleProbes(err):
		mpe := cause.(*probe.MultipleProbesError)
		var sb strings.Builder
		sb.WriteString("You can select a probe with --probe.selector VID:PID[:SERIAL].\nThe following probes were found:")
		for i, p := range mpe.Probes {
			fmt.Fprintf(&sb, "\n  [%d]: %s", i, p)
		}
		return []string{sb.String()}
	case probe.IsNoProbes(err):
		switch runtime.GOOS {
		case "linux":
			return []string{"Make sure the probe is connected and that udev rules grant access to it."}
		case "windows":
			return []string{"Make sure the probe is connected and its driver is installed."}
		}
		return []string{"Make sure the probe is connected."}
	case errors.IsNotSupported(err) && diag.selector != "":
		return []string{"Use --dry-run to try the flashing run on a simulated target,\n" +
			"or --probe.selector file:<path> to flash into an image file.\n" +
			"Available probe drivers: " + strings.Join(probe.Schemes(), ", ")}
	case config.IsCycle(err):
		return []string{fmt.Sprintf("Check the derives settings of the profiles in %s.", strings.Join(config.Files, " and "))}
	}
	return nil
}
