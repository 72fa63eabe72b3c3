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
	"os"
	"testing"

	"github.com/spf13/pflag"
)

func TestParseFlagSet(t *testing.T) {
	fs := pflag.NewFlagSet("pflagenv-test", pflag.ContinueOnError)

	var myFlag1, myFlag2, myFlag3, myFlag4 string
	var dotted bool
	fs.StringVar(&myFlag1, "my-flag1", "def1", "")
	fs.StringVar(&myFlag2, "my-flag2", "def2", "")
	fs.StringVar(&myFlag3, "my-flag3", "def3", "")
	fs.StringVar(&myFlag4, "my-flag4", "def4", "")
	fs.BoolVar(&dotted, "flashing.do-chip-erase", false, "")
	fs.Parse([]string{"--my-flag1=cl1", "--my-flag2="})

	os.Setenv("TEST_MY_FLAG1", "env1")
	os.Setenv("TEST_MY_FLAG2", "env2")
	os.Setenv("TEST_MY_FLAG3", "env3")
	os.Setenv("TEST_FLASHING_DO_CHIP_ERASE", "true")
	defer func() {
		for _, n := range []string{"TEST_MY_FLAG1", "TEST_MY_FLAG2", "TEST_MY_FLAG3", "TEST_FLASHING_DO_CHIP_ERASE"} {
			os.Unsetenv(n)
		}
	}()
	if err := ParseFlagSet(fs, "TEST_"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if got, want := myFlag1, "cl1"; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}

	if got, want := myFlag2, ""; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}

	if got, want := myFlag3, "env3"; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}

	if got, want := myFlag4, "def4"; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}

	if !dotted {
		t.Errorf("dotted flag was not picked up from the environment")
	}
	if !fs.Lookup("my-flag3").Changed {
		t.Errorf("flag set from env must be marked as changed")
	}
}

func TestParseFlagSetBadValue(t *testing.T) {
	fs := pflag.NewFlagSet("pflagenv-test", pflag.ContinueOnError)
	fs.Uint32("probe.speed", 0, "")
	fs.Parse(nil)

	os.Setenv("TEST_PROBE_SPEED", "fast")
	defer os.Unsetenv("TEST_PROBE_SPEED")

	if err := ParseFlagSet(fs, "TEST_"); err == nil {
		t.Fatalf("expected an error for a non-numeric speed")
	}
}

func TestEnvName(t *testing.T) {
	for _, c := range []struct{ flag, env string }{
		{"verbose", "ROVER_VERBOSE"},
		{"general.chip", "ROVER_GENERAL_CHIP"},
		{"flashing.restore-unwritten-bytes", "ROVER_FLASHING_RESTORE_UNWRITTEN_BYTES"},
	} {
		if got := EnvName(c.flag, "ROVER_"); got != c.env {
			t.Errorf("%s: got: %q, want: %q", c.flag, got, c.env)
		}
	}
}
