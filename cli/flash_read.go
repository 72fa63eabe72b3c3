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
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/image"
	"github.com/mongoose-os/rover/cli/flash/plan"
	"github.com/mongoose-os/rover/cli/ourutil"
	"github.com/mongoose-os/rover/common/ourio"
)

// Largest single read issued to the probe.
const readChunkSize = 4096

func readCmd(ctx context.Context, cfg *config.Config, args []string) error {
	type span struct{ addr, length uint64 }
	var spans []span
	outFile := ""
	desc, err := resolveChip(cfg)
	if err != nil {
		return errors.Trace(err)
	}
	switch len(args) {
	case 1:
		// All regions.
		for _, r := range desc.SortedRegions() {
			spans = append(spans, span{r.Start, r.Length})
		}
		outFile = args[0]
	case 3:
		addr, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return errors.Annotatef(err, "invalid address")
		}
		length, err := strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			return errors.Annotatef(err, "invalid length")
		}
		spans = append(spans, span{addr, length})
		outFile = args[2]
	default:
		return errors.Errorf("invalid arguments, expected: read [ADDR LENGTH] FILE")
	}

	s, err := openSession(ctx, cfg, desc)
	if err != nil {
		return errors.Trace(err)
	}
	var segs []image.Segment
	var total uint64
	for _, sp := range spans {
		var ss []image.Segment
		ss, err = readRange(ctx, s, desc, sp.addr, sp.length)
		if err != nil {
			break
		}
		segs = append(segs, ss...)
		total += sp.length
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Trace(err)
	}

	var data []byte
	if strings.ToLower(filepath.Ext(outFile)) == ".hex" {
		buf := bytes.NewBuffer(nil)
		if err := image.DumpHex(buf, segs); err != nil {
			return errors.Trace(err)
		}
		data = buf.Bytes()
	} else {
		for _, seg := range segs {
			data = append(data, seg.Data...)
		}
	}
	if outFile == "-" {
		_, err = os.Stdout.Write(data)
		return errors.Trace(err)
	}
	if _, err := ourio.WriteFileIfDifferent(outFile, data, 0644); err != nil {
		return errors.Trace(err)
	}
	reportf("Wrote %s (%s in %d segments)", outFile, ourutil.FormatSize(total), len(segs))
	return nil
}

// readRange reads [addr, addr+length) in chunks that never cross a region
// boundary. Each region read becomes one segment. Gaps between regions are
// an error.
func readRange(ctx context.Context, r plan.Reader, desc *chip.Descriptor, addr, length uint64) ([]image.Segment, error) {
	var segs []image.Segment
	end := addr + length
	for addr < end {
		reg, ok := desc.RegionAt(addr)
		if !ok {
			return nil, errors.NotValidf("address 0x%08x, it is not in any flash region of %s", addr, desc.Name)
		}
		seg := image.Segment{Name: reg.Name, Address: addr}
		stop := end
		if reg.End() < stop {
			stop = reg.End()
		}
		for addr < stop {
			if err := ctx.Err(); err != nil {
				return nil, errors.Trace(err)
			}
			n := stop - addr
			if n > readChunkSize {
				n = readChunkSize
			}
			data, err := r.Read(ctx, addr, n)
			if err != nil {
				return nil, errors.Annotatef(err, "failed to read 0x%08x+0x%x", addr, n)
			}
			if uint64(len(data)) != n {
				return nil, errors.Errorf("short read at 0x%08x: %d of %d bytes", addr, len(data), n)
			}
			seg.Data = append(seg.Data, data...)
			addr += n
		}
		segs = append(segs, seg)
	}
	return segs, nil
}
