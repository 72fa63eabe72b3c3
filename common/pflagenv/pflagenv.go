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
package pflagenv

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/pflag"

	"github.com/mongoose-os/rover/common/multierror"
)

// ParseFlagSet iterates through all non-set flags in the given FlagSet,
// checks if there is an environment variable with the uppercased flag name
// prepended with the given envPrefix, and if so, sets flag value to the
// environment variable value. Dots and dashes in flag names map to
// underscores, so --flashing.do-chip-erase is ROVER_FLASHING_DO_CHIP_ERASE.
//
// It should be called after Parse is called for the given FlagSet.
// Values that the flag refuses are collected and returned together.
func ParseFlagSet(fs *pflag.FlagSet, envPrefix string) error {

	// pflag does not distinguish between a flag set to its default value and
	// a flag which was not set at all, but Changed tells us which ones the
	// command line touched.

	var nonset []*pflag.Flag
	fs.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			nonset = append(nonset, f)
		}
	})
	sort.Slice(nonset, func(i, j int) bool { return nonset[i].Name < nonset[j].Name })

	return errors.Trace(setFromEnv(nonset, envPrefix))
}

// The same as ParseFlagSet, but operates on a default FlagSet: pflag.CommandLine
func Parse(envPrefix string) error {
	return ParseFlagSet(pflag.CommandLine, envPrefix)
}

func setFromEnv(nonset []*pflag.Flag, envPrefix string) error {
	var errs error
	for _, f := range nonset {
		name := EnvName(f.Name, envPrefix)
		envVar := os.Getenv(name)
		if envVar == "" {
			continue
		}
		if err := f.Value.Set(envVar); err != nil {
			errs = multierror.Append(errs, errors.Annotatef(err, "%s=%q", name, envVar))
			continue
		}
		f.Changed = true
	}
	return errs
}

// EnvName returns the environment variable consulted for flagName.
func EnvName(flagName, envPrefix string) string {
	flagName = strings.ToUpper(flagName)
	flagName = strings.NewReplacer("-", "_", ".", "_").Replace(flagName)
	return fmt.Sprint(envPrefix, flagName)
}
