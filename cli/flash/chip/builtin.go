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
package chip

// Family groups variants that share a datasheet.
type Family struct {
	Name     string
	Variants []*Descriptor
}

const builtinSource = "built-in"

func flash(start, length uint64, page, erase uint32) Region {
	return Region{
		Name:         "main",
		Start:        start,
		Length:       length,
		PageSize:     page,
		EraseUnit:    erase,
		PartialErase: true,
		ErasedValue:  DefaultErasedValue,
	}
}

func named(name string, r Region) Region {
	r.Name = name
	return r
}

func uicr(start, length uint64) Region {
	return Region{
		Name:        "uicr",
		Start:       start,
		Length:      length,
		PageSize:    uint32(length),
		EraseUnit:   uint32(length),
		ErasedValue: DefaultErasedValue,
	}
}

func erasedTo(v byte, r Region) Region {
	r.ErasedValue = v
	return r
}

// builtin is never modified after init. Registries take copies of it.
var builtin = []Family{
	{
		Name: "nRF51 Series",
		Variants: []*Descriptor{
			{Name: "nRF51822_xxAA", Regions: []Region{flash(0, 0x40000, 0x400, 0x400), uicr(0x10001000, 0x400)}},
			{Name: "nRF51822_xxAC", Regions: []Region{flash(0, 0x40000, 0x400, 0x400), uicr(0x10001000, 0x400)}},
		},
	},
	{
		Name: "nRF52 Series",
		Variants: []*Descriptor{
			{Name: "nRF52832_xxAA", Regions: []Region{flash(0, 0x80000, 0x1000, 0x1000), uicr(0x10001000, 0x1000)}},
			{Name: "nRF52840_xxAA", Regions: []Region{flash(0, 0x100000, 0x1000, 0x1000), uicr(0x10001000, 0x1000)}},
		},
	},
	{
		Name: "STM32F1 Series",
		Variants: []*Descriptor{
			{Name: "STM32F103C8", Regions: []Region{flash(0x08000000, 0x10000, 0x400, 0x400)}},
			{Name: "STM32F103RB", Regions: []Region{flash(0x08000000, 0x20000, 0x400, 0x400)}},
		},
	},
	{
		Name: "STM32F4 Series",
		Variants: []*Descriptor{
			{Name: "STM32F401RE", Regions: []Region{
				named("sectors_16k", flash(0x08000000, 0x10000, 0x400, 0x4000)),
				named("sector_64k", flash(0x08010000, 0x10000, 0x400, 0x10000)),
				named("sectors_128k", flash(0x08020000, 0x60000, 0x400, 0x20000)),
			}},
		},
	},
	{
		Name: "STM32L0 Series",
		Variants: []*Descriptor{
			{Name: "STM32L053R8", Regions: []Region{
				erasedTo(0x00, flash(0x08000000, 0x10000, 0x80, 0x80)),
				erasedTo(0x00, named("eeprom", flash(0x08080000, 0x800, 0x4, 0x4))),
			}},
		},
	},
	{
		Name: "LPC17xx",
		Variants: []*Descriptor{
			{Name: "LPC1768", Regions: []Region{
				named("sectors_4k", flash(0, 0x10000, 0x100, 0x1000)),
				named("sectors_32k", flash(0x10000, 0x70000, 0x100, 0x8000)),
			}},
		},
	},
	{
		Name: "RP2040",
		Variants: []*Descriptor{
			{Name: "RP2040", Regions: []Region{named("xip", flash(0x10000000, 0x200000, 0x100, 0x1000))}},
		},
	},
	{
		Name: "ATSAMD21 Series",
		Variants: []*Descriptor{
			{Name: "ATSAMD21G18A", Regions: []Region{flash(0, 0x40000, 0x40, 0x100)}},
			{Name: "ATSAMD21E18A", Regions: []Region{flash(0, 0x40000, 0x40, 0x100)}},
		},
	},
}

func init() {
	for _, f := range builtin {
		for _, v := range f.Variants {
			v.Family = f.Name
			v.Source = builtinSource
			if err := v.Validate(); err != nil {
				panic(err)
			}
		}
	}
}
