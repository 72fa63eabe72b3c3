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
	"io"
	"strings"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/image"
	"github.com/mongoose-os/rover/cli/flash/probe"
	"github.com/mongoose-os/rover/cli/ourutil"
)

func reportf(f string, args ...interface{}) {
	ourutil.Reportf(f, args...)
}

func freportf(logFile io.Writer, f string, args ...interface{}) {
	ourutil.Freportf(logFile, f, args...)
}

// loadRegistry returns the chip database with the configured description
// files applied over the built-in one.
func loadRegistry(cfg *config.Config) (*chip.Registry, error) {
	var overlays []*chip.Overlay
	for _, path := range cfg.General.ChipDescriptions {
		o, err := chip.LoadOverlay(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		glog.V(1).Infof("loaded %d chip descriptions from %s", len(o.Variants), path)
		overlays = append(overlays, o)
	}
	return chip.NewRegistry(overlays...), nil
}

// resolveChip looks up the configured chip and remembers it for diagnostics.
func resolveChip(cfg *config.Config) (*chip.Descriptor, error) {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	desc, err := reg.Resolve(cfg.General.Chip)
	if err != nil {
		return nil, errors.Trace(err)
	}
	diag.chip = desc
	glog.V(1).Infof("target: %s (%s, from %s), %d regions", desc.Name, desc.Family, desc.Source, len(desc.Regions))
	return desc, nil
}

// loadImage reads the configured image. A binary image without a base
// address goes to the start of flash.
func loadImage(cfg *config.Config, desc *chip.Descriptor) ([]image.Segment, error) {
	format, err := image.ParseFormat(strings.ToLower(cfg.General.Format))
	if err != nil {
		return nil, errors.Trace(err)
	}
	opts := image.BinOptions{BaseAddress: cfg.General.BaseAddress, Skip: cfg.General.Skip}
	if opts.BaseAddress == 0 {
		opts.BaseAddress = desc.Base()
	}
	segs, err := image.Load(cfg.General.File, format, opts)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load %s", cfg.General.File)
	}
	return segs, nil
}

// openSession connects to the configured probe. With dry_run set, a
// simulated target is used instead.
func openSession(ctx context.Context, cfg *config.Config, desc *chip.Descriptor) (probe.Session, error) {
	var sel probe.Selector
	var err error
	switch {
	case cfg.DryRun:
		sel = probe.Selector{Scheme: probe.SchemeMem}
	case cfg.Probe.Selector != "":
		sel, err = probe.ParseSelector(cfg.Probe.Selector)
	default:
		var probes []probe.Info
		probes, err = probe.List()
		if err == nil {
			sel, err = probe.Pick(probes)
		}
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	diag.selector, diag.speed = sel.String(), cfg.Probe.Speed
	s, err := probe.Open(ctx, sel, probe.Options{
		Regions:           desc.SortedRegions(),
		Speed:             cfg.Probe.Speed,
		ConnectUnderReset: cfg.General.ConnectUnderReset,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s, nil
}
