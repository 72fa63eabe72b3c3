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
	"io/ioutil"
	"os"
	"sort"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/common/ourio"
)

// File is a simulated target whose flash contents persist in a file.
// Offset 0 of the file is the lowest flash address. Only the regions
// contiguous with the lowest one are mapped. Bytes beyond the end of the
// file read as erased. The file is written back on Close.
type File struct {
	*Memory
	path string
	base uint64
	size uint64
}

func OpenFile(path string, regions []chip.Region) (*File, error) {
	if len(regions) == 0 {
		return nil, errors.NotValidf("flash image without a memory map")
	}
	rr := append([]chip.Region(nil), regions...)
	sort.Slice(rr, func(i, j int) bool { return rr[i].Start < rr[j].Start })
	mapped := rr[:1]
	for _, r := range rr[1:] {
		if r.Start != mapped[len(mapped)-1].End() {
			glog.V(1).Infof("%s: region %s is not mapped", path, r)
			break
		}
		mapped = append(mapped, r)
	}
	f := &File{Memory: NewMemory(mapped), path: path, base: mapped[0].Start}

	data, err := ioutil.ReadFile(path)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		glog.Infof("%s does not exist, starting with erased flash", path)
	default:
		return nil, errors.Trace(err)
	}
	f.size = uint64(len(data))
	limit := mapped[len(mapped)-1].End() - f.base
	if f.size > limit {
		return nil, errors.Errorf("%s is %d bytes, larger than the flash (%d)", path, f.size, limit)
	}
	// Regions are contiguous, but Load only writes within one of them.
	for _, r := range mapped {
		lo, hi := r.Start-f.base, r.End()-f.base
		if lo >= f.size {
			break
		}
		if hi > f.size {
			hi = f.size
		}
		if err := f.Load(r.Start, data[lo:hi]); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return f, nil
}

// Close writes the flash contents back. The file grows to cover everything
// that was erased or written, it never shrinks.
func (f *File) Close() error {
	if err := f.Memory.Close(); err != nil {
		return errors.Trace(err)
	}
	f.Memory.mu.Lock()
	n := f.size
	if f.Memory.high > f.base && f.Memory.high-f.base > n {
		n = f.Memory.high - f.base
	}
	f.Memory.mu.Unlock()
	var data []byte
	for _, r := range f.Memory.regions {
		if r.Start-f.base >= n {
			break
		}
		l := r.Length
		if r.End()-f.base > n {
			l = n - (r.Start - f.base)
		}
		d, err := f.Memory.Contents(r.Start, l)
		if err != nil {
			return errors.Trace(err)
		}
		data = append(data, d...)
	}
	written, err := ourio.WriteFileIfDifferent(f.path, data, 0644)
	if err != nil {
		return errors.Annotatef(err, "failed to save flash image")
	}
	glog.V(1).Infof("%s: %d bytes, changed: %t", f.path, len(data), written)
	return nil
}
