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
	"strconv"
	"strings"

	"github.com/juju/errors"
	flag "github.com/spf13/pflag"
)

var sections = map[string]bool{
	"general":  true,
	"flashing": true,
	"probe":    true,
	"reset":    true,
}

var topLevel = map[string]bool{
	"dry-run":              true,
	"disable-progressbars": true,
}

// FlagKey maps a flag name to the config key it overrides:
// "flashing.restore-unwritten-bytes" is "flashing.restore_unwritten_bytes".
func FlagKey(name string) (string, bool) {
	i := strings.Index(name, ".")
	if i < 0 {
		if !topLevel[name] {
			return "", false
		}
		return strings.Replace(name, "-", "_", -1), true
	}
	if !sections[name[:i]] {
		return "", false
	}
	return name[:i] + "." + strings.Replace(name[i+1:], "-", "_", -1), true
}

// FlagOverrides collects the flags that were set, on the command line or
// through the environment, and that correspond to config keys.
func FlagOverrides(fs *flag.FlagSet) (map[string]interface{}, error) {
	res := map[string]interface{}{}
	var err error
	fs.Visit(func(f *flag.Flag) {
		key, ok := FlagKey(f.Name)
		if !ok || err != nil {
			return
		}
		var v interface{}
		switch f.Value.Type() {
		case "bool":
			v, err = strconv.ParseBool(f.Value.String())
		case "uint", "uint8", "uint16", "uint32", "uint64":
			v, err = strconv.ParseUint(f.Value.String(), 0, 64)
		case "stringSlice":
			v, err = fs.GetStringSlice(f.Name)
		default:
			v = f.Value.String()
		}
		if err != nil {
			err = errors.Annotatef(err, "--%s", f.Name)
			return
		}
		res[key] = v
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
