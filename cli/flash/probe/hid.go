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
//go:build !no_libudev
// +build !no_libudev

package probe

import (
	"github.com/cesanta/hid"
	"github.com/golang/glog"
	"github.com/juju/errors"
)

// ListHID enumerates CMSIS-DAP v1 probes, which present themselves as HID devices.
func ListHID() ([]Info, error) {
	devs, err := hid.Devices()
	if err != nil {
		return nil, errors.Annotatef(err, "failed to enumerate HID devices")
	}
	var res []Info
	for i, di := range devs {
		k := lookupKnown(di.VendorID, di.ProductID)
		glog.V(2).Infof("hid %d: %04x:%04x %s", i, di.VendorID, di.ProductID, di.Path)
		if k == nil || !k.HID {
			continue
		}
		res = append(res, Info{VID: di.VendorID, PID: di.ProductID, Name: k.Name, Path: di.Path})
	}
	return res, nil
}
