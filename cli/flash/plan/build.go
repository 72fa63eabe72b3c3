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
package plan

import (
	"bytes"
	"sort"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/image"
)

// Policy controls how aggressively a plan erases.
type Policy struct {
	// ForceChipErase erases every touched region as a whole.
	ForceChipErase bool
	// RestoreUnwritten rewrites pages that an erase wipes but the image does
	// not touch, so that their contents survive.
	RestoreUnwritten bool
}

// Build computes the erase and write operations needed to place segs.
// All erases come first, then all writes, each group in address order.
// The returned plan is raw: bytes of written pages that no segment covers
// hold the region's erased value until the plan is merged.
func Build(regions []chip.Region, segs []image.Segment, pol Policy) (*Plan, error) {
	segs = image.Normalize(segs)
	for i := 1; i < len(segs); i++ {
		if segs[i-1].End() > segs[i].Address {
			return nil, errors.Trace(&OverlappingTargetError{First: segs[i-1], Second: segs[i]})
		}
	}

	rr := append([]chip.Region(nil), regions...)
	sort.Slice(rr, func(i, j int) bool { return rr[i].Start < rr[j].Start })
	byRegion := make([][]image.Segment, len(rr))
	for _, s := range segs {
		ri := -1
		for i, r := range rr {
			if r.Contains(s.Address, uint64(len(s.Data))) {
				ri = i
				break
			}
		}
		if ri < 0 {
			return nil, errors.Trace(&SegmentOutOfRangeError{Segment: s})
		}
		byRegion[ri] = append(byRegion[ri], s)
	}

	p := &Plan{Regions: rr, Policy: pol, ImageBytes: image.Size(segs)}
	var writes []Operation
	for i, r := range rr {
		if len(byRegion[i]) == 0 {
			continue
		}
		ee, ww := planRegion(r, byRegion[i], pol)
		p.ops = append(p.ops, ee...)
		writes = append(writes, ww...)
	}
	p.ops = append(p.ops, writes...)
	glog.V(1).Infof("plan: %s", p)
	if glog.V(2) {
		for i, op := range p.ops {
			glog.Infof("  %3d %s", i, &op)
		}
	}
	return p, nil
}

func planRegion(r chip.Region, segs []image.Segment, pol Policy) ([]Operation, []Operation) {
	eu, ps := uint64(r.EraseUnit), uint64(r.PageSize)

	var ranges []span[uint64]
	if pol.ForceChipErase || !r.PartialErase {
		ranges = []span[uint64]{{r.Start, r.End()}}
	} else {
		for _, s := range segs {
			ranges = append(ranges, span[uint64]{alignDown(s.Address, eu), alignUp(s.End(), eu)})
		}
		ranges = coalesce(ranges)
	}
	var erases []Operation
	for _, rg := range ranges {
		erases = append(erases, Operation{
			Kind:    OpErase,
			Address: rg.start,
			Length:  rg.end - rg.start,
			Region:  r.Name,
			Fill:    r.ErasedValue,
		})
	}

	// After a forced erase there is nothing left to preserve.
	var pages []uint64
	if pol.RestoreUnwritten && !pol.ForceChipErase {
		for _, rg := range ranges {
			for a := rg.start; a < rg.end; a += ps {
				pages = append(pages, a)
			}
		}
	} else {
		for _, s := range segs {
			for a := alignDown(s.Address, ps); a < s.End(); a += ps {
				if n := len(pages); n == 0 || pages[n-1] < a {
					pages = append(pages, a)
				}
			}
		}
	}

	var writes []Operation
	si := 0
	for _, a := range pages {
		end := a + ps
		data := bytes.Repeat([]byte{r.ErasedValue}, int(ps))
		var gaps []Span
		cur := a
		for si < len(segs) && segs[si].End() <= a {
			si++
		}
		for j := si; j < len(segs) && segs[j].Address < end; j++ {
			s := segs[j]
			from, to := maxOf(a, s.Address), minOf(end, s.End())
			if from > cur {
				gaps = append(gaps, Span{Offset: cur - a, Length: from - cur})
			}
			copy(data[from-a:to-a], s.Data[from-s.Address:to-s.Address])
			cur = to
		}
		if cur < end {
			gaps = append(gaps, Span{Offset: cur - a, Length: end - cur})
		}
		writes = append(writes, Operation{
			Kind:     OpWrite,
			Address:  a,
			Length:   ps,
			Data:     data,
			Region:   r.Name,
			Fill:     r.ErasedValue,
			Gaps:     gaps,
			Preserve: len(gaps) == 1 && gaps[0].Length == ps,
		})
	}
	return erases, writes
}
