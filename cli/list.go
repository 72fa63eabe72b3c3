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
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/probe"
	"github.com/mongoose-os/rover/cli/ourutil"
)

func listChipsCmd(ctx context.Context, cfg *config.Config, args []string) error {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return errors.Trace(err)
	}
	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}
	matching := map[string]bool{}
	for _, d := range reg.Search(filter) {
		matching[d.Name] = true
	}
	if len(matching) == 0 {
		return errors.Trace(&chip.NotFoundError{Name: filter})
	}
	w := tabwriter.NewWriter(color.Output, 0, 0, 2, ' ', 0)
	family := color.New(color.Bold)
	for _, f := range reg.Families() {
		shown := false
		for _, v := range f.Variants {
			if !matching[v.Name] {
				continue
			}
			if !shown {
				w.Flush()
				family.Fprintf(color.Output, "%s\n", f.Name)
				shown = true
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", v.Name, describeRegions(v), v.Source)
		}
	}
	return errors.Trace(w.Flush())
}

func describeRegions(d *chip.Descriptor) string {
	var parts []string
	for _, r := range d.SortedRegions() {
		parts = append(parts, fmt.Sprintf("%s %s@0x%08x", r.Name, ourutil.FormatSize(r.Length), r.Start))
	}
	return strings.Join(parts, ", ")
}

func listProbesCmd(ctx context.Context, cfg *config.Config, args []string) error {
	probes, err := probe.List()
	if err != nil {
		return errors.Trace(err)
	}
	if len(probes) == 0 {
		reportf("No debug probes were found")
		return nil
	}
	for i, p := range probes {
		fmt.Fprintf(os.Stdout, "[%d]: %s\n", i, p)
	}
	return nil
}
