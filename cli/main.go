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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/juju/errors"
	flag "github.com/spf13/pflag"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/cli/flags"
	"github.com/mongoose-os/rover/common/pflagenv"
	"github.com/mongoose-os/rover/version"
)

const (
	envPrefix = "ROVER_"
)

var (
	versionFlag = flag.Bool("version", false, "Print version and exit")
	helpFull    = flag.Bool("helpfull", false, "Show full help, including advanced flags")
)

var (
	// put all commands here
	commands = []command{
		{"flash", flashCmd, `Flash an image to the target. Also the default when the first argument is a file`,
			[]string{"general.chip", "general.file"},
			[]string{"profile", "probe.selector", "flashing.restore-unwritten-bytes", "flashing.do-chip-erase", "flashing.verify", "flashing.flash-layout-output-path", "dry-run"}},
		{"layout", layoutCmd, `Show what flashing an image would do, without touching a target`,
			[]string{"general.chip", "general.file"},
			[]string{"profile", "flashing.restore-unwritten-bytes", "flashing.do-chip-erase", "output"}},
		{"read", readCmd, `Read flash contents into a .bin or .hex file: read ADDR LENGTH FILE`,
			[]string{"general.chip"},
			[]string{"profile", "probe.selector"}},
		{"list-chips", listChipsCmd, `List supported chips, optionally only those matching a filter: list-chips [FILTER]`,
			nil,
			[]string{"general.chip-descriptions"}},
		{"list-probes", listProbesCmd, `List attached debug probes`, nil, nil},
		{"version", versionCmd, `Print version and exit`, nil, nil},
	}
)

type command struct {
	name     string
	handler  handler
	short    string
	required []string
	optional []string
}

// handler runs a command. args are the positional arguments after the command name.
type handler func(ctx context.Context, cfg *config.Config, args []string) error

// findCommand returns the command to run and its arguments. A first argument
// that is not a command but an existing file means "flash" it.
func findCommand(args []string) (*command, []string) {
	if len(args) == 0 {
		return nil, nil
	}
	for i := range commands {
		if commands[i].name == args[0] {
			return &commands[i], args[1:]
		}
	}
	if st, err := os.Stat(args[0]); err == nil && !st.IsDir() {
		return &commands[0], args
	}
	return nil, nil
}

func loadConfig() (*config.Config, error) {
	dir := *flags.WorkDir
	if dir == "" {
		dir = "."
	}
	profiles, err := config.Load(dir)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load configuration")
	}
	overrides, err := config.FlagOverrides(flag.CommandLine)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cfg, err := profiles.Resolve(*flags.Profile, overrides)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := applyLogLevel(cfg); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

func run(ctx context.Context) error {
	if flag.NArg() == 0 {
		usage()
		return nil
	}
	cmd, args := findCommand(flag.Args())
	if cmd == nil {
		return errors.Errorf("unknown command %q, and there is no such file", flag.Arg(0))
	}
	cfg, err := loadConfig()
	if err != nil {
		return errors.Trace(err)
	}
	if cmd.name == "flash" && cfg.General.File == "" && len(args) > 0 {
		cfg.General.File, args = args[0], args[1:]
	}
	// check required settings
	if err := checkRequired(cfg, cmd.required); err != nil {
		return errors.Trace(err)
	}
	// run the handler
	if err := cmd.handler(ctx, cfg, args); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func versionCmd(ctx context.Context, cfg *config.Config, args []string) error {
	fmt.Println(version.Describe())
	return nil
}

func main() {
	initFlags()
	flag.Parse()
	if err := pflagenv.Parse(envPrefix); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer glog.Flush()
	glog.V(1).Infof("%s", version.GetUserAgent())

	if *helpFull {
		unhideFlags()
		usage()
		return
	} else if *versionFlag {
		fmt.Println(version.Describe())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		glog.Infof("Error: %+v", err)
		printError(os.Stderr, err)
		glog.Flush()
		os.Exit(1)
	}
}
