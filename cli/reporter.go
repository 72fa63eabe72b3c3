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
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/golang/glog"
	isatty "github.com/mattn/go-isatty"

	"github.com/mongoose-os/rover/cli/flash/progress"
	"github.com/mongoose-os/rover/cli/ourutil"
)

// reporter prints a summary line per phase. On a terminal the current phase
// also gets a percentage that is redrawn in place.
type reporter struct {
	w          io.Writer
	live       bool
	phaseStart time.Duration
	drawn      bool
}

func newReporter(w io.Writer) *reporter {
	return &reporter{w: w, live: isatty.IsTerminal(os.Stderr.Fd())}
}

func (r *reporter) clearLine() {
	if r.drawn {
		fmt.Fprintf(r.w, "\r\033[K")
		r.drawn = false
	}
}

func (r *reporter) Event(e progress.Event) {
	switch e.Kind {
	case progress.Started:
		r.phaseStart = e.Elapsed
		glog.V(1).Infof("%s: %d bytes", e.Phase, e.PhaseTotal)
	case progress.Step:
		if glog.V(1) {
			glog.Infof("%s", e)
		}
		if r.live && e.PhaseTotal > 0 {
			fmt.Fprintf(r.w, "\r  %-8s %3d%% %s", e.Phase, e.PhaseDone*100/e.PhaseTotal, ourutil.FormatSize(e.PhaseDone))
			r.drawn = true
		}
	case progress.Finished:
		r.clearLine()
		d := e.Elapsed - r.phaseStart
		rate := ""
		if secs := d.Seconds(); secs > 0 && e.PhaseDone > 0 {
			rate = fmt.Sprintf(", %s/s", ourutil.FormatSize(uint64(float64(e.PhaseDone)/secs)))
		}
		freportf(r.w, "  %-8s %s in %.2fs%s", e.Phase, ourutil.FormatSize(e.PhaseDone), d.Seconds(), rate)
	case progress.Failed:
		r.clearLine()
		color.New(color.FgRed).Fprintf(r.w, "  %-8s failed at 0x%08x\n", e.Phase, e.Address)
		glog.Infof("%s", e)
	}
}
