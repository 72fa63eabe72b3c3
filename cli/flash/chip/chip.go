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

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/juju/errors"

	"github.com/mongoose-os/rover/common/multierror"
)

const (
	DefaultErasedValue = 0xff
)

// Region is a contiguous block of non-volatile memory with uniform geometry.
// A chip whose sectors differ in size is described by several regions.
type Region struct {
	Name         string
	Start        uint64
	Length       uint64
	PageSize     uint32
	EraseUnit    uint32
	PartialErase bool
	// ErasedValue is what every cell reads as after an erase.
	ErasedValue byte
}

func (r Region) End() uint64 {
	return r.Start + r.Length
}

// Contains reports whether [addr, addr+length) lies entirely inside the region.
func (r Region) Contains(addr, length uint64) bool {
	if addr < r.Start || addr >= r.End() {
		return false
	}
	return length <= r.End()-addr
}

func (r Region) String() string {
	name := r.Name
	if name == "" {
		name = "flash"
	}
	return fmt.Sprintf("%s 0x%08x-0x%08x (page %d, erase %d)", name, r.Start, r.End(), r.PageSize, r.EraseUnit)
}

// Validate checks the geometry of a single region.
func (r Region) Validate() error {
	var errs error
	switch {
	case r.Length == 0:
		errs = multierror.Append(errs, errors.NotValidf("%s: zero length", r.label()))
	case r.Start+r.Length < r.Start:
		errs = multierror.Append(errs, errors.NotValidf("%s: end overflows the address space", r.label()))
	}
	if r.PageSize == 0 {
		errs = multierror.Append(errs, errors.NotValidf("%s: zero page size", r.label()))
	}
	if r.EraseUnit == 0 {
		errs = multierror.Append(errs, errors.NotValidf("%s: zero erase unit", r.label()))
	}
	if r.PageSize == 0 || r.EraseUnit == 0 {
		return errs
	}
	if r.EraseUnit%r.PageSize != 0 {
		errs = multierror.Append(errs, errors.NotValidf(
			"%s: erase unit %d is not a multiple of page size %d", r.label(), r.EraseUnit, r.PageSize))
	}
	eu := uint64(r.EraseUnit)
	if r.Start%eu != 0 || r.Length%eu != 0 {
		errs = multierror.Append(errs, errors.NotValidf(
			"%s: 0x%x+0x%x is not aligned to erase unit %d", r.label(), r.Start, r.Length, r.EraseUnit))
	}
	return errs
}

func (r Region) label() string {
	if r.Name != "" {
		return fmt.Sprintf("region %q", r.Name)
	}
	return fmt.Sprintf("region @ 0x%x", r.Start)
}

// Descriptor is the flash geometry of one chip variant.
type Descriptor struct {
	Name   string
	Family string
	// Source is "built-in" or the overlay the variant came from.
	Source  string
	Regions []Region
}

// Clone returns a deep copy, so the registry never hands out its own state.
func (d *Descriptor) Clone() *Descriptor {
	nd := *d
	nd.Regions = append([]Region(nil), d.Regions...)
	return &nd
}

// SortedRegions returns the regions ordered by start address.
func (d *Descriptor) SortedRegions() []Region {
	rr := append([]Region(nil), d.Regions...)
	sort.Slice(rr, func(i, j int) bool { return rr[i].Start < rr[j].Start })
	return rr
}

// RegionAt returns the region holding addr.
func (d *Descriptor) RegionAt(addr uint64) (Region, bool) {
	for _, r := range d.Regions {
		if r.Contains(addr, 1) {
			return r, true
		}
	}
	return Region{}, false
}

// Base is the lowest flash address of the chip.
func (d *Descriptor) Base() uint64 {
	rr := d.SortedRegions()
	if len(rr) == 0 {
		return 0
	}
	return rr[0].Start
}

// Validate checks every region and makes sure no two of them overlap.
func (d *Descriptor) Validate() error {
	var errs error
	if d.Name == "" {
		errs = multierror.Append(errs, errors.NotValidf("variant without a name"))
	}
	if len(d.Regions) == 0 {
		errs = multierror.Append(errs, errors.NotValidf("%s: no flash regions", d.Name))
	}
	for _, r := range d.Regions {
		if err := r.Validate(); err != nil {
			for _, e := range multierror.Errors(err) {
				errs = multierror.Append(errs, errors.Annotate(e, d.Name))
			}
		}
	}
	rr := d.SortedRegions()
	for i := 1; i < len(rr); i++ {
		if rr[i-1].End() > rr[i].Start {
			errs = multierror.Append(errs, errors.NotValidf(
				"%s: %s overlaps %s", d.Name, rr[i-1].label(), rr[i].label()))
		}
	}
	return errs
}

// NormalizeName folds alphabetic characters to lower case and leaves
// everything else untouched. Two chip names are the same iff their
// normalized forms are equal.
func NormalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return r
	}, name)
}
