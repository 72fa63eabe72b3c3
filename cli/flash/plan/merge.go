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
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/flash/progress"
)

// Reader fetches current device contents.
type Reader interface {
	Read(ctx context.Context, addr, length uint64) ([]byte, error)
}

// Merge resolves the bytes of written pages that the image does not cover.
// With restore and a reader, each such page is read from the device once and
// the uncovered bytes take the values read; otherwise they keep the region's
// erased value. The returned plan is finalized and can be executed.
// Merging happens before execution, so all reads precede the first erase.
func Merge(ctx context.Context, raw *Plan, restore bool, r Reader) (*Plan, error) {
	return MergeWithProgress(ctx, raw, restore, r, nil)
}

// MergeWithProgress is Merge that reports device reads as the fill phase.
func MergeWithProgress(ctx context.Context, raw *Plan, restore bool, r Reader, sink progress.Sink) (*Plan, error) {
	if raw.finalized {
		return raw, nil
	}
	read := restore && r != nil

	var total uint64
	if read {
		for _, op := range raw.ops {
			if op.Kind == OpWrite && len(op.Gaps) > 0 {
				total += op.Length
			}
		}
	}
	p := &Plan{
		ops:        make([]Operation, len(raw.ops)),
		ImageBytes: raw.ImageBytes,
		Regions:    raw.Regions,
		Policy:     raw.Policy,
		finalized:  true,
	}
	start := time.Now()
	ev := func(kind progress.Kind, idx int, op *Operation, done uint64, err error) {
		e := progress.Event{
			Phase: progress.Fill, Kind: kind, Index: idx,
			PhaseDone: done, PhaseTotal: total,
			Elapsed: time.Since(start), Err: err,
		}
		if op != nil {
			e.Address, e.Size = op.Address, op.Length
		}
		progress.Emit(sink, e)
	}
	if total > 0 {
		ev(progress.Started, -1, nil, 0, nil)
	}
	var done uint64
	for i, op := range raw.ops {
		nop := op
		nop.Data = append([]byte(nil), op.Data...)
		nop.Gaps = append([]Span(nil), op.Gaps...)
		if read && op.Kind == OpWrite && len(op.Gaps) > 0 {
			if err := ctx.Err(); err != nil {
				ev(progress.Failed, i, &op, done, err)
				return nil, errors.Trace(err)
			}
			cur, err := r.Read(ctx, op.Address, op.Length)
			if err != nil {
				ev(progress.Failed, i, &op, done, err)
				return nil, errors.Annotatef(err, "failed to read 0x%08x+0x%x", op.Address, op.Length)
			}
			if uint64(len(cur)) < op.Length {
				glog.Warningf("short read at 0x%08x: %d of %d bytes, the rest is filled with 0x%02x",
					op.Address, len(cur), op.Length, op.Fill)
			}
			for _, g := range op.Gaps {
				for k := g.Offset; k < g.Offset+g.Length && k < uint64(len(cur)); k++ {
					nop.Data[k] = cur[k]
				}
			}
			done += op.Length
			ev(progress.Step, i, &op, done, nil)
			glog.V(2).Infof("restored %d gaps in 0x%08x", len(op.Gaps), op.Address)
		}
		p.ops[i] = nop
	}
	if total > 0 {
		ev(progress.Finished, -1, nil, done, nil)
	}
	glog.V(1).Infof("merged plan, %d bytes read back in %s", done, time.Since(start))
	return p, nil
}

// Finalize marks a raw plan as ready to execute without reading the device.
// Uncovered bytes keep the erased value.
func Finalize(raw *Plan) *Plan {
	p, _ := Merge(context.Background(), raw, false, nil)
	return p
}
