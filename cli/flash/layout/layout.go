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
package layout

import (
	"sort"

	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/plan"
)

type Label string

const (
	Erased    Label = "erased"
	Written   Label = "written"
	Untouched Label = "untouched"
)

// Span is a run of bytes that the plan treats the same way.
type Span struct {
	Start uint64
	End   uint64
	Label Label
}

func (s Span) Len() uint64 {
	return s.End - s.Start
}

type Region struct {
	Name      string
	Start     uint64
	End       uint64
	PageSize  uint32
	EraseUnit uint32
	// Spans cover [Start, End) without gaps, in address order.
	Spans []Span
}

// Document is a rendered plan.
type Document struct {
	Regions    []Region
	Erases     int
	Writes     int
	ImageBytes uint64
}

// Render describes what the plan does to each region. Written bytes take
// precedence over erased ones.
func Render(p *plan.Plan, regions []chip.Region) *Document {
	rr := append([]chip.Region(nil), regions...)
	sort.Slice(rr, func(i, j int) bool { return rr[i].Start < rr[j].Start })
	doc := &Document{
		Erases:     len(p.Erases()),
		Writes:     len(p.Writes()),
		ImageBytes: p.ImageBytes,
	}
	ops := p.Ops()
	for _, r := range rr {
		doc.Regions = append(doc.Regions, renderRegion(r, ops))
	}
	return doc
}

func renderRegion(r chip.Region, ops []plan.Operation) Region {
	start, end := r.Start, r.End()
	points := []uint64{start, end}
	var erased, written []Span
	for _, op := range ops {
		s, e := op.Address, op.End()
		if e <= start || s >= end {
			continue
		}
		if s < start {
			s = start
		}
		if e > end {
			e = end
		}
		points = append(points, s, e)
		if op.Kind == plan.OpErase {
			erased = append(erased, Span{Start: s, End: e})
		} else {
			written = append(written, Span{Start: s, End: e})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i] < points[j] })

	res := Region{Name: r.Name, Start: start, End: end, PageSize: r.PageSize, EraseUnit: r.EraseUnit}
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if a == b {
			continue
		}
		l := Untouched
		switch {
		case covers(written, a):
			l = Written
		case covers(erased, a):
			l = Erased
		}
		if n := len(res.Spans); n > 0 && res.Spans[n-1].Label == l {
			res.Spans[n-1].End = b
			continue
		}
		res.Spans = append(res.Spans, Span{Start: a, End: b, Label: l})
	}
	return res
}

func covers(ss []Span, addr uint64) bool {
	for _, s := range ss {
		if s.Start <= addr && addr < s.End {
			return true
		}
	}
	return false
}
