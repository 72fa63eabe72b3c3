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
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(start, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(start + i)
	}
	return b
}

func TestNormalizeLaterSegmentWins(t *testing.T) {
	a := Segment{Name: "a", Address: 0, Data: bytes.Repeat([]byte{0xaa}, 8)}
	b := Segment{Name: "b", Address: 4, Data: bytes.Repeat([]byte{0xbb}, 8)}
	res := Normalize([]Segment{a, b})
	require.Len(t, res, 1)
	assert.Equal(t, uint64(0), res[0].Address)
	assert.Equal(t, append(bytes.Repeat([]byte{0xaa}, 4), bytes.Repeat([]byte{0xbb}, 8)...), res[0].Data)

	// Input order decides, not address order.
	res = Normalize([]Segment{b, a})
	require.Len(t, res, 1)
	assert.Equal(t, append(bytes.Repeat([]byte{0xaa}, 8), bytes.Repeat([]byte{0xbb}, 4)...), res[0].Data)
}

func TestNormalize(t *testing.T) {
	in := []Segment{
		{Name: "c", Address: 0x200, Data: seq(0, 0x10)},
		{Name: "empty", Address: 0x100, Data: nil},
		{Name: "a", Address: 0x100, Data: seq(0, 0x10)},
		{Name: "b", Address: 0x110, Data: seq(0x10, 0x10)},
		{Name: "d", Address: 0x208, Data: seq(0x80, 0x10)},
		{Name: "e", Address: 0x204, Data: seq(0x40, 2)},
	}
	res := Normalize(in)
	require.Len(t, res, 3)
	assert.Equal(t, "a", res[0].Name)
	assert.Equal(t, uint64(0x100), res[0].Address)
	assert.Equal(t, "b", res[1].Name)
	assert.Equal(t, uint64(0x110), res[1].Address)

	assert.Equal(t, uint64(0x200), res[2].Address)
	want := seq(0, 0x18)
	copy(want[8:], seq(0x80, 0x10))
	copy(want[4:], seq(0x40, 2))
	assert.Equal(t, want, res[2].Data)
	assert.Equal(t, uint64(0x10+0x10+0x18), Size(res))

	// The input is left alone.
	assert.Equal(t, seq(0, 0x10), in[0].Data)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]Segment{{Name: "x", Address: 5}}))
}

func TestLoadBin(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "fw.bin")
	require.NoError(t, ioutil.WriteFile(fn, seq(0, 32), 0644))

	segs, err := Load(fn, FormatAuto, BinOptions{BaseAddress: 0x08000000, Skip: 16})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "fw.bin", segs[0].Name)
	assert.Equal(t, uint64(0x08000000), segs[0].Address)
	assert.Equal(t, seq(16, 16), segs[0].Data)

	_, err = LoadBin(fn, 0, 33)
	assert.Error(t, err)
}

func TestHex(t *testing.T) {
	segs := []Segment{
		{Address: 0x08000000, Data: seq(0, 40)},
		{Address: 0x08001000, Data: seq(100, 3)},
	}
	var buf bytes.Buffer
	require.NoError(t, DumpHex(&buf, segs))

	dir := t.TempDir()
	fn := filepath.Join(dir, "fw.hex")
	require.NoError(t, ioutil.WriteFile(fn, buf.Bytes(), 0644))
	got, err := Load(fn, FormatAuto, BinOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fw.hex@0x08000000", got[0].Name)
	assert.Equal(t, segs[0].Data, got[0].Data)
	assert.Equal(t, uint64(0x08001000), got[1].Address)
	assert.Equal(t, segs[1].Data, got[1].Data)

	_, err = ReadHex(strings.NewReader(":zz\n"), "bad")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("HEX")
	require.NoError(t, err)
	assert.Equal(t, FormatHex, f)
	_, err = ParseFormat("elf")
	assert.Error(t, err)
	_, err = Load("fw.elf", FormatAuto, BinOptions{})
	assert.Error(t, err)
}
