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
package probe

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/flash/chip"
)

const (
	SchemeMem  = "mem"
	SchemeFile = "file"
	SchemeUSB  = "usb"
)

// Selector identifies a probe. The textual forms are
//
//	mem                 simulated target
//	file:<path>         flash image kept in a file
//	VID:PID[:SERIAL]    USB probe, VID and PID in hex
//	<scheme>:<arg>      any other registered driver
type Selector struct {
	Scheme string
	Arg    string
	VID    uint16
	PID    uint16
	Serial string
}

func (s Selector) String() string {
	switch s.Scheme {
	case SchemeMem:
		return SchemeMem
	case SchemeUSB:
		if s.Serial != "" {
			return fmt.Sprintf("%04x:%04x:%s", s.VID, s.PID, s.Serial)
		}
		return fmt.Sprintf("%04x:%04x", s.VID, s.PID)
	}
	return s.Scheme + ":" + s.Arg
}

func ParseSelector(s string) (Selector, error) {
	if s == SchemeMem {
		return Selector{Scheme: SchemeMem}, nil
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return Selector{}, errors.NotValidf("probe selector %q", s)
	}
	if scheme := parts[0]; hasDriver(scheme) {
		arg := strings.TrimPrefix(s, scheme+":")
		if arg == "" && scheme == SchemeFile {
			return Selector{}, errors.NotValidf("probe selector %q without a path", s)
		}
		return Selector{Scheme: scheme, Arg: arg}, nil
	}
	vid, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return Selector{}, errors.NotValidf("probe selector %q", s)
	}
	pid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return Selector{}, errors.NotValidf("product id in probe selector %q", s)
	}
	sel := Selector{Scheme: SchemeUSB, VID: uint16(vid), PID: uint16(pid)}
	if len(parts) == 3 {
		sel.Serial = parts[2]
	}
	return sel, nil
}

// Options are passed to drivers when a session is opened.
type Options struct {
	// Regions describe the target flash. Simulated targets use them as
	// their memory map.
	Regions           []chip.Region
	Speed             uint
	ConnectUnderReset bool
}

// Driver opens sessions for one selector scheme.
type Driver func(ctx context.Context, sel Selector, opts Options) (Session, error)

var (
	driversLock sync.Mutex
	drivers     = map[string]Driver{}
)

// Register makes a driver available for a selector scheme. Registering the
// same scheme twice replaces the previous driver.
func Register(scheme string, d Driver) {
	driversLock.Lock()
	defer driversLock.Unlock()
	drivers[scheme] = d
}

func hasDriver(scheme string) bool {
	driversLock.Lock()
	defer driversLock.Unlock()
	_, ok := drivers[scheme]
	return ok
}

// Schemes lists the registered driver schemes.
func Schemes() []string {
	driversLock.Lock()
	defer driversLock.Unlock()
	var res []string
	for s := range drivers {
		res = append(res, s)
	}
	sort.Strings(res)
	return res
}

// Open starts a session with the selected probe.
func Open(ctx context.Context, sel Selector, opts Options) (Session, error) {
	driversLock.Lock()
	d := drivers[sel.Scheme]
	driversLock.Unlock()
	if d == nil {
		if sel.Scheme == SchemeUSB {
			name := "probe"
			if k := lookupKnown(sel.VID, sel.PID); k != nil {
				name = k.Name
			}
			return nil, errors.NotSupportedf("%s %s: no transport driver", name, sel)
		}
		return nil, errors.NotSupportedf("probe scheme %q", sel.Scheme)
	}
	glog.V(1).Infof("opening %s", sel)
	s, err := d(ctx, sel, opts)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open %s", sel)
	}
	return s, nil
}

func init() {
	Register(SchemeMem, func(ctx context.Context, sel Selector, opts Options) (Session, error) {
		return NewMemory(opts.Regions), nil
	})
	Register(SchemeFile, func(ctx context.Context, sel Selector, opts Options) (Session, error) {
		return OpenFile(sel.Arg, opts.Regions)
	})
}
