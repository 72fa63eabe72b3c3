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
	"fmt"
	"sort"

	"github.com/golang/glog"
	"github.com/juju/errors"
)

// Info describes a probe found on the host.
type Info struct {
	VID     uint16
	PID     uint16
	Serial  string
	Name    string
	Product string
	Path    string
}

func (i Info) Selector() Selector {
	return Selector{Scheme: SchemeUSB, VID: i.VID, PID: i.PID, Serial: i.Serial}
}

func (i Info) String() string {
	s := fmt.Sprintf("%s -- %s", i.Name, i.Selector())
	if i.Product != "" && i.Product != i.Name {
		s += fmt.Sprintf(" (%s)", i.Product)
	}
	return s
}

type knownProbe struct {
	VID, PID uint16
	Name     string
	// HID probes are enumerated through the HID API rather than libusb.
	HID bool
}

// PID 0 matches any product of the vendor.
var knownProbes = []knownProbe{
	{VID: 0x0d28, PID: 0x0204, Name: "DAPLink", HID: true},
	{VID: 0x0483, PID: 0x3748, Name: "ST-Link/V2"},
	{VID: 0x0483, PID: 0x374b, Name: "ST-Link/V2-1"},
	{VID: 0x0483, PID: 0x374e, Name: "ST-Link/V3"},
	{VID: 0x0483, PID: 0x374f, Name: "ST-Link/V3"},
	{VID: 0x1366, PID: 0, Name: "J-Link"},
	{VID: 0x2e8a, PID: 0x000c, Name: "Raspberry Pi Debug Probe"},
}

func lookupKnown(vid, pid uint16) *knownProbe {
	for i := range knownProbes {
		k := &knownProbes[i]
		if k.VID == vid && (k.PID == 0 || k.PID == pid) {
			return k
		}
	}
	return nil
}

// List returns the probes attached to the host, USB and HID ones together.
// Enumeration errors of one kind are logged if the other kind succeeds.
func List() ([]Info, error) {
	usbProbes, usbErr := ListUSB()
	hidProbes, hidErr := ListHID()
	if usbErr != nil && hidErr != nil {
		return nil, errors.Annotatef(usbErr, "failed to list probes")
	}
	if usbErr != nil {
		glog.Warningf("USB enumeration failed: %s", usbErr)
	}
	if hidErr != nil {
		glog.Warningf("HID enumeration failed: %s", hidErr)
	}
	res := append(usbProbes, hidProbes...)
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].VID != res[j].VID {
			return res[i].VID < res[j].VID
		}
		if res[i].PID != res[j].PID {
			return res[i].PID < res[j].PID
		}
		return res[i].Serial < res[j].Serial
	})
	return res, nil
}

// Pick selects the only probe in probes.
func Pick(probes []Info) (Selector, error) {
	switch len(probes) {
	case 0:
		return Selector{}, errors.Trace(&NoProbesError{})
	case 1:
		return probes[0].Selector(), nil
	}
	return Selector{}, errors.Trace(&MultipleProbesError{Probes: probes})
}
