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
package image

import (
	"fmt"
	"sort"
)

// Segment is a named range of bytes placed at an absolute address.
type Segment struct {
	Name    string
	Address uint64
	Data    []byte
}

func (s Segment) End() uint64 {
	return s.Address + uint64(len(s.Data))
}

func (s Segment) String() string {
	return fmt.Sprintf("%s @ 0x%08x (%d bytes)", s.Name, s.Address, len(s.Data))
}

// Normalize sorts segments by address, drops empty ones and merges the ones
// that overlap. Where two segments overlap, the one given later wins.
// Segments that merely touch are kept apart.
func Normalize(segs []Segment) []Segment {
	idx := make([]int, 0, len(segs))
	for i, s := range segs {
		if len(s.Data) > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return segs[idx[a]].Address < segs[idx[b]].Address
	})

	var res []Segment
	for i := 0; i < len(idx); {
		// Collect a cluster of transitively overlapping segments.
		start, end := segs[idx[i]].Address, segs[idx[i]].End()
		j := i + 1
		for ; j < len(idx) && segs[idx[j]].Address < end; j++ {
			if e := segs[idx[j]].End(); e > end {
				end = e
			}
		}
		cluster := append([]int(nil), idx[i:j]...)
		if len(cluster) == 1 {
			s := segs[cluster[0]]
			res = append(res, Segment{Name: s.Name, Address: s.Address, Data: append([]byte(nil), s.Data...)})
			i = j
			continue
		}
		// Paint in input order so later segments overwrite earlier ones.
		sort.Ints(cluster)
		data := make([]byte, end-start)
		for _, k := range cluster {
			s := segs[k]
			copy(data[s.Address-start:], s.Data)
		}
		res = append(res, Segment{Name: segs[idx[i]].Name, Address: start, Data: data})
		i = j
	}
	return res
}

// Size is the total number of bytes in segs.
func Size(segs []Segment) uint64 {
	var n uint64
	for _, s := range segs {
		n += uint64(len(s.Data))
	}
	return n
}
