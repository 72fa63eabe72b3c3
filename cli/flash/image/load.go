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
	"io"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/juju/errors"
	"github.com/marcinbor85/gohex"
)

type Format string

const (
	FormatAuto Format = ""
	FormatBin  Format = "bin"
	FormatHex  Format = "hex"
)

// BinOptions place a raw binary in the address space.
type BinOptions struct {
	BaseAddress uint64
	// Skip is the number of leading file bytes to ignore.
	Skip uint64
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "":
		return FormatAuto, nil
	case "bin", "binary":
		return FormatBin, nil
	case "hex", "ihex":
		return FormatHex, nil
	case "elf":
		return "", errors.NotSupportedf("ELF images")
	}
	return "", errors.NotValidf("image format %q", s)
}

// Load reads an image file. FormatAuto picks the format from the extension.
func Load(path string, format Format, opts BinOptions) ([]Segment, error) {
	if format == FormatAuto {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".hex", ".ihex":
			format = FormatHex
		case ".elf", ".axf", ".out":
			return nil, errors.NotSupportedf("%s: ELF images", path)
		default:
			format = FormatBin
		}
	}
	switch format {
	case FormatBin:
		return LoadBin(path, opts.BaseAddress, opts.Skip)
	case FormatHex:
		return LoadHex(path)
	}
	return nil, errors.NotValidf("image format %q", format)
}

func LoadBin(path string, base, skip uint64) ([]Segment, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if skip > uint64(len(data)) {
		return nil, errors.Errorf("%s: cannot skip %d bytes, file is only %d bytes long", path, skip, len(data))
	}
	data = data[skip:]
	glog.V(1).Infof("%s: %d bytes @ 0x%x", path, len(data), base)
	return []Segment{{Name: filepath.Base(path), Address: base, Data: data}}, nil
}

func LoadHex(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	segs, err := ReadHex(f, filepath.Base(path))
	return segs, errors.Annotatef(err, "%s", path)
}

// ReadHex parses Intel HEX. Every contiguous data block becomes a segment.
func ReadHex(r io.Reader, name string) ([]Segment, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, errors.Annotatef(err, "invalid Intel HEX")
	}
	var res []Segment
	for _, ds := range mem.GetDataSegments() {
		res = append(res, Segment{
			Name:    fmt.Sprintf("%s@0x%08x", name, ds.Address),
			Address: uint64(ds.Address),
			Data:    ds.Data,
		})
		glog.V(1).Infof("%s", res[len(res)-1])
	}
	return res, nil
}

// DumpHex writes segments as Intel HEX, 16 bytes per record.
func DumpHex(w io.Writer, segs []Segment) error {
	mem := gohex.NewMemory()
	for _, s := range segs {
		if s.End() > math.MaxUint32+1 {
			return errors.NotValidf("%s: address beyond 4GiB in Intel HEX", s)
		}
		if err := mem.AddBinary(uint32(s.Address), s.Data); err != nil {
			return errors.Annotatef(err, "%s", s)
		}
	}
	return errors.Trace(mem.DumpIntelHex(w, 16))
}
