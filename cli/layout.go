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
	"os"

	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/cli/flags"
	"github.com/mongoose-os/rover/cli/flash/layout"
	"github.com/mongoose-os/rover/cli/flash/plan"
)

// layoutCmd renders the plan for the configured image without touching a
// target. Bytes that would be restored from the device show as written.
func layoutCmd(ctx context.Context, cfg *config.Config, args []string) error {
	desc, raw, err := buildPlan(cfg)
	if err != nil {
		return errors.Trace(err)
	}
	doc := layout.Render(plan.Finalize(raw), desc.SortedRegions())
	out := *flags.Output
	if out == "" || out == "-" {
		return errors.Trace(doc.WriteText(os.Stdout))
	}
	if err := doc.Save(out); err != nil {
		return errors.Trace(err)
	}
	reportf("Flash layout saved to %s", out)
	return nil
}
