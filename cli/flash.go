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
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/cli/flags"
	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/engine"
	"github.com/mongoose-os/rover/cli/flash/layout"
	"github.com/mongoose-os/rover/cli/flash/plan"
	"github.com/mongoose-os/rover/cli/flash/progress"
	"github.com/mongoose-os/rover/cli/ourutil"
)

func flashCmd(ctx context.Context, cfg *config.Config, args []string) error {
	if !cfg.Flashing.IsEnabled() {
		reportf("Flashing is disabled by the %q profile, nothing to do", *flags.Profile)
		return nil
	}
	return errors.Trace(flash(ctx, cfg))
}

// buildPlan resolves the chip, loads the image and plans the operations.
func buildPlan(cfg *config.Config) (*chip.Descriptor, *plan.Plan, error) {
	desc, err := resolveChip(cfg)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	segs, err := loadImage(cfg, desc)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	raw, err := plan.Build(desc.SortedRegions(), segs, plan.Policy{
		ForceChipErase:   cfg.Flashing.ChipErase(),
		RestoreUnwritten: cfg.Flashing.Restore(),
	})
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	glog.V(1).Infof("plan:\n%s", raw)
	return desc, raw, nil
}

func flash(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	desc, raw, err := buildPlan(cfg)
	if err != nil {
		return errors.Trace(err)
	}
	reportf("Flashing %s (%s) to %s: %d erases, %d writes",
		cfg.General.File, ourutil.FormatSize(raw.ImageBytes), desc.Name, len(raw.Erases()), len(raw.Writes()))
	if cfg.DryRun {
		reportf("Dry run, using a simulated target")
	}

	s, err := openSession(ctx, cfg, desc)
	if err != nil {
		return errors.Trace(err)
	}

	var sink progress.Sink
	closeProgress := func() {}
	if !cfg.DisableProgressbars {
		q := progress.NewQueue(newReporter(color.Error))
		sink, closeProgress = q, q.Close
	}
	defer closeProgress()

	p, err := plan.MergeWithProgress(ctx, raw, cfg.Flashing.Restore(), s, sink)
	if err != nil {
		s.Close()
		return errors.Annotatef(err, "failed to read back unwritten bytes")
	}

	if path := cfg.Flashing.FlashLayoutOutputPath; path != "" {
		doc := layout.Render(p, desc.SortedRegions())
		if err := doc.Save(path); err != nil {
			s.Close()
			return errors.Trace(err)
		}
		reportf("Flash layout saved to %s", path)
	}

	// Execute closes the session.
	res, err := engine.Execute(ctx, p, s, engine.Options{
		Verify:   cfg.Flashing.ShouldVerify(),
		Attempts: *flags.Attempts,
		Progress: sink,
		Reset:    cfg.Reset.IsEnabled(),
		Halt:     cfg.Reset.Halt(),
	})
	closeProgress()
	if err != nil {
		return errors.Trace(err)
	}
	if err := res.Err(); err != nil {
		return errors.Trace(err)
	}
	if res.Verified {
		reportf("Verified %s", ourutil.FormatSize(res.Checked))
	}
	reportf("Finished in %.2fs", time.Since(start).Seconds())
	return nil
}
