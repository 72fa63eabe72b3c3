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
	goflag "flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/juju/errors"
	flag "github.com/spf13/pflag"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/common/multierror"
	"github.com/mongoose-os/rover/version"
)

var (
	hiddenFlags = []string{
		"alsologtostderr",
		"log_backtrace_at",
		"log_dir",
		"logbufsecs",
		"logtostderr",
		"stderrthreshold",
		"v",
		"vmodule",
	}
)

func initFlags() {
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	hideFlags()
	flag.Usage = usage
}

func hideFlags() {
	for _, f := range hiddenFlags {
		flag.CommandLine.MarkHidden(f)
	}
}

func unhideFlags() {
	for _, f := range hiddenFlags {
		f := flag.Lookup(f)
		if f != nil {
			f.Hidden = false
		}
	}
}

// applyLogLevel sets up glog from general.log_level, unless -v or
// --stderrthreshold were given explicitly.
func applyLogLevel(cfg *config.Config) error {
	threshold, v, err := cfg.General.GlogSettings()
	if err != nil {
		return errors.Trace(err)
	}
	if f := flag.Lookup("stderrthreshold"); f != nil && !f.Changed {
		if err := flag.Set("stderrthreshold", threshold); err != nil {
			return errors.Trace(err)
		}
	}
	if f := flag.Lookup("v"); f != nil && !f.Changed {
		if err := flag.Set("v", fmt.Sprintf("%d", v)); err != nil {
			return errors.Trace(err)
		}
	}
	glog.V(1).Infof("Log level: %s, v=%d", threshold, v)
	return nil
}

// requiredValue returns the resolved value of a required setting, named the
// same way as its flag.
func requiredValue(cfg *config.Config, name string) string {
	switch name {
	case "general.chip":
		return cfg.General.Chip
	case "general.file":
		return cfg.General.File
	}
	return "?"
}

func checkRequired(cfg *config.Config, names []string) error {
	var errs error
	for _, name := range names {
		if requiredValue(cfg, name) != "" {
			continue
		}
		usage := ""
		if f := flag.Lookup(name); f != nil {
			usage = f.Usage
		}
		errs = multierror.Append(errs, errors.Errorf("--%s is required\t\t%s", name, usage))
	}
	return errors.Trace(errs)
}

func printFlag(w io.Writer, opt string, name string) {
	f := flag.Lookup(name)
	if f == nil {
		return
	}
	arg := "<" + f.Value.Type() + ">"
	if f.Value.Type() == "bool" {
		arg = ""
	}
	fmt.Fprintf(w, "  --%s %s\t%s. %s, default value: %q\n", name, arg, f.Usage, opt, f.DefValue)
}

func usage() {
	w := tabwriter.NewWriter(os.Stderr, 0, 0, 1, ' ', 0)

	if len(os.Args) == 3 && os.Args[1] == "help" {
		for _, c := range commands {
			if c.name == os.Args[2] {
				fmt.Fprintf(w, "%s %s FLAGS\n", os.Args[0], os.Args[2])
				fmt.Fprintf(w, "\nFlags:\n")
				for _, name := range c.required {
					printFlag(w, "Required", name)
				}
				for _, name := range c.optional {
					printFlag(w, "Optional", name)
				}
				w.Flush()
				os.Exit(1)
			}
		}
	}

	fmt.Fprintf(w, "The Rover flash tool %s.\n", version.Version)
	if version.BuildId != "" {
		color.New(color.FgHiBlack).Fprintf(w, "%s\n", version.Describe())
	}

	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s <command>\n", os.Args[0])
	fmt.Fprintf(w, "  %s <image file>\n", os.Args[0])
	fmt.Fprintf(w, "\nCommands:\n")

	for _, c := range commands {
		fmt.Fprintf(w, "  %s\t\t%s\n", c.name, c.short)
	}

	fmt.Fprintf(w, "\nSettings are read from the %q profile of %s and can be overridden by flags.\n",
		config.DefaultProfile, config.Files[0])

	fmt.Fprintf(w, "\nGlobal Flags:\n")
	if *helpFull {
		fmt.Fprintf(w, "%s", flag.CommandLine.FlagUsages())
	} else {
		printFlag(w, "Optional", "profile")
		printFlag(w, "Optional", "general.chip")
		printFlag(w, "Optional", "general.log-level")
		printFlag(w, "Optional", "dry-run")
	}

	w.Flush()
}
