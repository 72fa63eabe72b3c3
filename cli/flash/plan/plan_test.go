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
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/image"
)

var region4k = chip.Region{
	Name: "main", Start: 0, Length: 4096, PageSize: 256, EraseUnit: 4096,
	PartialErase: true, ErasedValue: 0xff,
}

func fill(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func seq(start, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(start + i)
	}
	return b
}

// deviceReader serves reads from a byte slice mapped at address 0.
type deviceReader struct {
	mem   []byte
	reads []uint64
	err   error
	short int
}

func (r *deviceReader) Read(ctx context.Context, addr, length uint64) ([]byte, error) {
	r.reads = append(r.reads, addr)
	if r.err != nil {
		return nil, r.err
	}
	end := addr + length
	if r.short > 0 {
		end -= uint64(r.short)
	}
	return append([]byte(nil), r.mem[addr:end]...), nil
}

// checkInvariants verifies the structural properties every plan must have.
func checkInvariants(t *testing.T, p *Plan) {
	t.Helper()
	seenWrite := false
	var erases []Operation
	var lastWriteEnd uint64
	for i, op := range p.Ops() {
		switch op.Kind {
		case OpErase:
			require.False(t, seenWrite, "erase #%d after a write", i)
			if n := len(erases); n > 0 {
				require.True(t, erases[n-1].End() <= op.Address, "erase #%d out of order", i)
			}
			erases = append(erases, op)
		case OpWrite:
			seenWrite = true
			require.Equal(t, op.Length, uint64(len(op.Data)))
			require.True(t, op.Address >= lastWriteEnd, "write #%d overlaps or is out of order", i)
			lastWriteEnd = op.End()
			contained := false
			for _, e := range erases {
				if e.Address <= op.Address && op.End() <= e.End() {
					contained = true
				}
			}
			require.True(t, contained, "write #%d is not covered by an erase", i)
		}
	}
}

func TestSinglePartialPage(t *testing.T) {
	raw, err := Build([]chip.Region{region4k}, []image.Segment{{Name: "s", Address: 0, Data: seq(1, 10)}}, Policy{})
	require.NoError(t, err)
	p, err := Merge(context.Background(), raw, false, nil)
	require.NoError(t, err)
	checkInvariants(t, p)

	ops := p.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, OpErase, ops[0].Kind)
	assert.Equal(t, uint64(0), ops[0].Address)
	assert.Equal(t, uint64(4096), ops[0].Length)
	assert.Equal(t, OpWrite, ops[1].Kind)
	assert.Equal(t, uint64(0), ops[1].Address)
	assert.Equal(t, append(seq(1, 10), fill(0xff, 246)...), ops[1].Data)
	assert.Equal(t, uint64(10), p.ImageBytes)
	assert.True(t, p.Finalized())
	assert.False(t, raw.Finalized())
}

func TestRestoreGapBetweenSegments(t *testing.T) {
	dev := &deviceReader{mem: seq(0x40, 4096)}
	segs := []image.Segment{
		{Name: "a", Address: 0, Data: fill(0x11, 4)},
		{Name: "b", Address: 250, Data: fill(0x22, 10)},
	}
	raw, err := Build([]chip.Region{region4k}, segs, Policy{})
	require.NoError(t, err)
	require.Len(t, raw.Writes(), 2)

	p, err := Merge(context.Background(), raw, true, dev)
	require.NoError(t, err)
	checkInvariants(t, p)
	w := p.Writes()
	require.Len(t, w, 2)
	want := append(append(fill(0x11, 4), dev.mem[4:250]...), fill(0x22, 6)...)
	assert.Equal(t, want, w[0].Data)
	assert.Len(t, w[0].Data, 256)
	// The second page holds the last 4 bytes of b, the rest comes from the device.
	assert.Equal(t, append(fill(0x22, 4), dev.mem[260:512]...), w[1].Data)
	assert.Equal(t, []uint64{0, 256}, dev.reads)

	// The raw plan is untouched.
	assert.Equal(t, fill(0xff, 246), raw.Writes()[0].Data[4:250])
}

func TestRestoreWithinOnePage(t *testing.T) {
	dev := &deviceReader{mem: seq(0x80, 4096)}
	segs := []image.Segment{
		{Name: "s0", Address: 0, Data: fill(0xaa, 4)},
		{Name: "s1", Address: 246, Data: fill(0xbb, 10)},
	}
	raw, err := Build([]chip.Region{region4k}, segs, Policy{})
	require.NoError(t, err)
	p, err := Merge(context.Background(), raw, true, dev)
	require.NoError(t, err)
	w := p.Writes()
	require.Len(t, w, 1)
	assert.Equal(t, append(append(fill(0xaa, 4), dev.mem[4:246]...), fill(0xbb, 10)...), w[0].Data)
	assert.Equal(t, []uint64{0}, dev.reads)
}

func TestForceChipErase(t *testing.T) {
	region := chip.Region{Start: 0, Length: 768, PageSize: 256, EraseUnit: 256, PartialErase: true, ErasedValue: 0xff}
	for _, restore := range []bool{false, true} {
		raw, err := Build([]chip.Region{region}, []image.Segment{{Name: "s", Address: 16, Data: seq(0, 32)}},
			Policy{ForceChipErase: true, RestoreUnwritten: restore})
		require.NoError(t, err)
		checkInvariants(t, raw)
		e := raw.Erases()
		require.Len(t, e, 1)
		assert.Equal(t, uint64(0), e[0].Address)
		assert.Equal(t, uint64(768), e[0].Length)
		w := raw.Writes()
		require.Len(t, w, 1)
		assert.Equal(t, uint64(0), w[0].Address)
	}
}

func TestOverlappingSegmentsLaterWins(t *testing.T) {
	segs := []image.Segment{
		{Name: "a", Address: 0, Data: fill(0xaa, 8)},
		{Name: "b", Address: 4, Data: fill(0xbb, 8)},
	}
	raw, err := Build([]chip.Region{region4k}, segs, Policy{})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), raw.ImageBytes)
	p := Finalize(raw)
	w := p.Writes()
	require.Len(t, w, 1)
	assert.Equal(t, append(append(fill(0xaa, 4), fill(0xbb, 8)...), fill(0xff, 244)...), w[0].Data)
}

func TestEmptyImage(t *testing.T) {
	raw, err := Build([]chip.Region{region4k}, nil, Policy{RestoreUnwritten: true})
	require.NoError(t, err)
	assert.Equal(t, 0, raw.Len())
	p, err := Merge(context.Background(), raw, true, &deviceReader{})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
	assert.True(t, p.Finalized())
}

func TestExactEraseUnit(t *testing.T) {
	raw, err := Build([]chip.Region{region4k}, []image.Segment{{Name: "s", Address: 0, Data: seq(0, 4096)}}, Policy{RestoreUnwritten: true})
	require.NoError(t, err)
	checkInvariants(t, raw)
	require.Len(t, raw.Erases(), 1)
	require.Len(t, raw.Writes(), 16)
	assert.Equal(t, uint64(0), raw.GapBytes())
	for _, w := range raw.Writes() {
		assert.Empty(t, w.Gaps)
		assert.Equal(t, seq(int(w.Address), 256), w.Data)
	}
}

func TestPreservationPages(t *testing.T) {
	dev := &deviceReader{mem: seq(0, 4096)}
	seg := image.Segment{Name: "s", Address: 512, Data: fill(0x55, 256)}

	raw, err := Build([]chip.Region{region4k}, []image.Segment{seg}, Policy{})
	require.NoError(t, err)
	require.Len(t, raw.Writes(), 1)

	raw, err = Build([]chip.Region{region4k}, []image.Segment{seg}, Policy{RestoreUnwritten: true})
	require.NoError(t, err)
	checkInvariants(t, raw)
	w := raw.Writes()
	require.Len(t, w, 16)
	preserved := 0
	for _, op := range w {
		if op.Preserve {
			preserved++
		}
	}
	assert.Equal(t, 15, preserved)

	p, err := Merge(context.Background(), raw, true, dev)
	require.NoError(t, err)
	var out []byte
	for _, op := range p.Writes() {
		out = append(out, op.Data...)
	}
	want := append([]byte(nil), dev.mem...)
	copy(want[512:], seg.Data)
	assert.Equal(t, want, out)
	assert.Len(t, dev.reads, 15)
}

func TestCoalescedErases(t *testing.T) {
	region := chip.Region{Start: 0x1000, Length: 0x10000, PageSize: 0x100, EraseUnit: 0x1000, PartialErase: true, ErasedValue: 0xff}
	segs := []image.Segment{
		{Name: "a", Address: 0x1f00, Data: fill(1, 0x200)},
		{Name: "b", Address: 0x3800, Data: fill(2, 0x10)},
		{Name: "c", Address: 0x8000, Data: fill(3, 0x1000)},
	}
	raw, err := Build([]chip.Region{region}, segs, Policy{})
	require.NoError(t, err)
	checkInvariants(t, raw)
	var got [][2]uint64
	for _, e := range raw.Erases() {
		got = append(got, [2]uint64{e.Address, e.Length})
	}
	assert.Equal(t, [][2]uint64{{0x1000, 0x3000}, {0x8000, 0x1000}}, got)
	assert.Len(t, raw.Writes(), 2+1+16)
}

func TestNoPartialEraseRegion(t *testing.T) {
	dev := &deviceReader{mem: seq(0, 0x800)}
	uicr := chip.Region{Name: "uicr", Start: 0x400, Length: 0x400, PageSize: 0x100, EraseUnit: 0x400, ErasedValue: 0xff}
	raw, err := Build([]chip.Region{uicr}, []image.Segment{{Name: "cfg", Address: 0x580, Data: fill(0, 4)}}, Policy{RestoreUnwritten: true})
	require.NoError(t, err)
	checkInvariants(t, raw)
	e := raw.Erases()
	require.Len(t, e, 1)
	assert.Equal(t, uint64(0x400), e[0].Address)
	assert.Equal(t, uint64(0x400), e[0].Length)
	require.Len(t, raw.Writes(), 4)

	p, err := Merge(context.Background(), raw, true, dev)
	require.NoError(t, err)
	w := p.Writes()
	assert.Equal(t, dev.mem[0x400:0x500], w[0].Data)
	assert.Equal(t, append(append(append([]byte(nil), dev.mem[0x500:0x580]...), fill(0, 4)...), dev.mem[0x584:0x600]...), w[1].Data)
}

func TestMultipleRegions(t *testing.T) {
	d, err := chip.NewRegistry().Resolve("STM32F401RE")
	require.NoError(t, err)
	segs := []image.Segment{
		{Name: "boot", Address: 0x08000000, Data: fill(1, 0x4100)},
		{Name: "app", Address: 0x08020000, Data: fill(2, 0x10)},
	}
	raw, err := Build(d.Regions, segs, Policy{})
	require.NoError(t, err)
	checkInvariants(t, raw)
	var got [][2]uint64
	for _, e := range raw.Erases() {
		got = append(got, [2]uint64{e.Address, e.Length})
	}
	assert.Equal(t, [][2]uint64{{0x08000000, 0x8000}, {0x08020000, 0x20000}}, got)
	assert.Equal(t, "sectors_128k", raw.Erases()[1].Region)
}

func TestSegmentOutOfRange(t *testing.T) {
	regions := []chip.Region{
		{Start: 0, Length: 0x1000, PageSize: 0x100, EraseUnit: 0x1000, PartialErase: true},
		{Start: 0x1000, Length: 0x1000, PageSize: 0x100, EraseUnit: 0x1000, PartialErase: true},
	}
	for _, seg := range []image.Segment{
		{Name: "outside", Address: 0x2000, Data: fill(0, 1)},
		{Name: "straddle", Address: 0xff0, Data: fill(0, 0x20)},
	} {
		_, err := Build(regions, []image.Segment{seg}, Policy{})
		require.Error(t, err, seg.Name)
		assert.True(t, IsSegmentOutOfRange(err), seg.Name)
		assert.Equal(t, seg.Name, errors.Cause(err).(*SegmentOutOfRangeError).Segment.Name)
	}
}

func TestMergeReaderErrors(t *testing.T) {
	raw, err := Build([]chip.Region{region4k}, []image.Segment{{Name: "s", Address: 0, Data: seq(0, 10)}}, Policy{})
	require.NoError(t, err)

	_, err = Merge(context.Background(), raw, true, &deviceReader{err: errors.New("usb stall")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usb stall")

	p, err := Merge(context.Background(), raw, true, &deviceReader{mem: fill(0x33, 4096), short: 6})
	require.NoError(t, err)
	w := p.Writes()[0].Data
	assert.Equal(t, fill(0x33, 240), w[10:250])
	assert.Equal(t, fill(0xff, 6), w[250:])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Merge(ctx, raw, true, &deviceReader{mem: fill(0, 4096)})
	assert.Equal(t, context.Canceled, errors.Cause(err))

	// Without a reader the erased value is used.
	p, err = Merge(context.Background(), raw, true, nil)
	require.NoError(t, err)
	assert.Equal(t, fill(0xff, 246), p.Writes()[0].Data[10:])
}

func TestErasedValue(t *testing.T) {
	region := region4k
	region.ErasedValue = 0x00
	p := Finalize(mustBuild(t, []chip.Region{region}, []image.Segment{{Name: "s", Address: 8, Data: fill(0xee, 8)}}))
	assert.Equal(t, append(append(fill(0, 8), fill(0xee, 8)...), fill(0, 240)...), p.Writes()[0].Data)
}

func mustBuild(t *testing.T, regions []chip.Region, segs []image.Segment) *Plan {
	t.Helper()
	p, err := Build(regions, segs, Policy{})
	require.NoError(t, err)
	return p
}
