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
	"fmt"

	"github.com/golang/glog"
	"github.com/google/gousb"
	"github.com/juju/errors"
)

// ListUSB enumerates USB devices with known probe vendor and product IDs.
func ListUSB() ([]Info, error) {
	uctx := gousb.NewContext()
	defer uctx.Close()
	devs, err := uctx.OpenDevices(func(dd *gousb.DeviceDesc) bool {
		k := lookupKnown(uint16(dd.Vendor), uint16(dd.Product))
		glog.V(2).Infof("usb %s:%s bus %d addr %d known %t", dd.Vendor, dd.Product, dd.Bus, dd.Address, k != nil)
		return k != nil && !k.HID
	})
	// OpenDevices may fail overall but still return results. Only fail if no devices were returned.
	if err != nil && len(devs) == 0 {
		return nil, errors.Annotatef(err, "failed to enumerate USB devices")
	}
	var res []Info
	for _, dev := range devs {
		vid, pid := uint16(dev.Desc.Vendor), uint16(dev.Desc.Product)
		info := Info{
			VID:  vid,
			PID:  pid,
			Name: lookupKnown(vid, pid).Name,
			Path: fmt.Sprintf("usb:%d:%d", dev.Desc.Bus, dev.Desc.Address),
		}
		info.Serial, _ = dev.SerialNumber()
		info.Product, _ = dev.Product()
		dev.Close()
		res = append(res, info)
	}
	return res, nil
}
