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
package config

import (
	"strings"

	"github.com/juju/errors"
)

// Config is one resolved profile.
type Config struct {
	General  General  `yaml:"general"`
	Flashing Flashing `yaml:"flashing"`
	Probe    Probe    `yaml:"probe"`
	Reset    Reset    `yaml:"reset"`

	DryRun              bool `yaml:"dry_run,omitempty"`
	DisableProgressbars bool `yaml:"disable_progressbars,omitempty"`
}

type General struct {
	Chip             string   `yaml:"chip,omitempty"`
	ChipDescriptions []string `yaml:"chip_descriptions,omitempty"`
	LogLevel         string   `yaml:"log_level,omitempty"`
	// Derives names the profiles this one is layered on.
	Derives           Derives `yaml:"derives,omitempty"`
	ConnectUnderReset bool    `yaml:"connect_under_reset,omitempty"`
	File              string  `yaml:"file,omitempty"`
	Format            string  `yaml:"format,omitempty"`
	BaseAddress       uint64  `yaml:"base_address,omitempty"`
	Skip              uint64  `yaml:"skip,omitempty"`
}

// Flashing options. Unset fields are nil, so that Enabled can tell an
// explicit false from nothing at all.
type Flashing struct {
	Enabled               *bool  `yaml:"enabled,omitempty"`
	RestoreUnwrittenBytes *bool  `yaml:"restore_unwritten_bytes,omitempty"`
	FlashLayoutOutputPath string `yaml:"flash_layout_output_path,omitempty"`
	DoChipErase           *bool  `yaml:"do_chip_erase,omitempty"`
	Verify                *bool  `yaml:"verify,omitempty"`
}

// IsEnabled returns the explicit setting if there is one. Otherwise flashing
// is on if any other flashing option was given.
func (f *Flashing) IsEnabled() bool {
	if f.Enabled != nil {
		return *f.Enabled
	}
	return f.RestoreUnwrittenBytes != nil || f.FlashLayoutOutputPath != "" || f.DoChipErase != nil || f.Verify != nil
}

func (f *Flashing) Restore() bool {
	return f.RestoreUnwrittenBytes != nil && *f.RestoreUnwrittenBytes
}

func (f *Flashing) ChipErase() bool {
	return f.DoChipErase != nil && *f.DoChipErase
}

func (f *Flashing) ShouldVerify() bool {
	return f.Verify != nil && *f.Verify
}

type Probe struct {
	// Selector is "mem", "file:<path>" or "VID:PID[:SERIAL]". Empty means
	// the single attached probe.
	Selector string `yaml:"selector,omitempty"`
	// Speed in kHz, 0 for the probe default.
	Speed uint `yaml:"speed,omitempty"`
}

type Reset struct {
	Enabled        *bool `yaml:"enabled,omitempty"`
	HaltAfterwards *bool `yaml:"halt_afterwards,omitempty"`
}

func (r *Reset) IsEnabled() bool {
	if r.Enabled != nil {
		return *r.Enabled
	}
	return r.HaltAfterwards != nil
}

func (r *Reset) Halt() bool {
	return r.HaltAfterwards != nil && *r.HaltAfterwards
}

// Derives accepts either a single profile name or a list of them.
type Derives []string

func (d *Derives) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*d = Derives{s}
		return nil
	}
	var l []string
	if err := unmarshal(&l); err != nil {
		return errors.NotValidf("derives, expected a profile name or a list of them")
	}
	*d = l
	return nil
}

type logLevel struct {
	threshold string
	v         int
}

var logLevels = map[string]logLevel{
	"error": {"ERROR", 0},
	"warn":  {"WARNING", 0},
	"info":  {"INFO", 0},
	"debug": {"INFO", 1},
	"trace": {"INFO", 2},
}

// GlogSettings maps the log level to glog's stderrthreshold and v flags.
func (g *General) GlogSettings() (string, int, error) {
	name := strings.ToLower(g.LogLevel)
	if name == "" {
		name = "warn"
	}
	if name == "warning" {
		name = "warn"
	}
	l, ok := logLevels[name]
	if !ok {
		return "", 0, errors.NotValidf("log level %q", g.LogLevel)
	}
	return l.threshold, l.v, nil
}

// Validate checks values that decoding alone does not catch.
func (c *Config) Validate() error {
	if _, _, err := c.General.GlogSettings(); err != nil {
		return errors.Trace(err)
	}
	switch strings.ToLower(c.General.Format) {
	case "", "bin", "binary", "hex", "ihex":
	default:
		return errors.NotValidf("image format %q", c.General.Format)
	}
	return nil
}
