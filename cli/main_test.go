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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongoose-os/rover/cli/config"
	"github.com/mongoose-os/rover/cli/flash/chip"
	"github.com/mongoose-os/rover/cli/flash/engine"
	"github.com/mongoose-os/rover/cli/flash/plan"
	"github.com/mongoose-os/rover/cli/flash/probe"
)

func init() {
	color.NoColor = true
}

func TestFindCommand(t *testing.T) {
	cmd, args := findCommand([]string{"read", "0", "16", "out.bin"})
	require.NotNil(t, cmd)
	assert.Equal(t, "read", cmd.name)
	assert.Equal(t, []string{"0", "16", "out.bin"}, args)

	f, err := ioutil.TempFile("", "rover-image-*.bin")
	require.NoError(t, err)
	f.Close()
	defer os.Remove(f.Name())
	cmd, args = findCommand([]string{f.Name()})
	require.NotNil(t, cmd)
	assert.Equal(t, "flash", cmd.name)
	assert.Equal(t, []string{f.Name()}, args)

	cmd, _ = findCommand([]string{"no-such-command-or-file"})
	assert.Nil(t, cmd)
}

func TestCheckRequired(t *testing.T) {
	cfg := &config.Config{}
	err := checkRequired(cfg, []string{"general.chip", "general.file"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--general.chip is required")
	assert.Contains(t, err.Error(), "--general.file is required")

	cfg.General.Chip, cfg.General.File = "RP2040", "fw.hex"
	assert.NoError(t, checkRequired(cfg, []string{"general.chip", "general.file"}))
}

func flashConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	yes := true
	cfg := &config.Config{}
	cfg.General.Chip = "nrf52832_XXAA"
	cfg.General.File = filepath.Join(dir, "fw.bin")
	cfg.Flashing.RestoreUnwrittenBytes = &yes
	cfg.Flashing.Verify = &yes
	cfg.Probe.Selector = "file:" + filepath.Join(dir, "flash.img")
	cfg.DisableProgressbars = true
	return cfg
}

func TestFlashToFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "rover")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	cfg := flashConfig(t, dir)
	cfg.Flashing.FlashLayoutOutputPath = filepath.Join(dir, "layout.yaml")

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "flash.img"), bytes.Repeat([]byte{0x11}, 0x2000), 0644))
	require.NoError(t, ioutil.WriteFile(cfg.General.File, bytes.Repeat([]byte{0xaa}, 0x100), 0644))

	require.NoError(t, flash(context.Background(), cfg))

	got, err := ioutil.ReadFile(filepath.Join(dir, "flash.img"))
	require.NoError(t, err)
	require.Len(t, got, 0x2000)
	assert.Equal(t, bytes.Repeat([]byte{0xaa}, 0x100), got[:0x100])
	assert.Equal(t, bytes.Repeat([]byte{0x11}, 0x2000-0x100), got[0x100:])

	doc, err := ioutil.ReadFile(cfg.Flashing.FlashLayoutOutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "written")
}

func TestFlashWithoutRestore(t *testing.T) {
	dir, err := ioutil.TempDir("", "rover")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	no := false
	cfg := flashConfig(t, dir)
	cfg.Flashing.RestoreUnwrittenBytes = &no

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "flash.img"), bytes.Repeat([]byte{0x11}, 0x2000), 0644))
	require.NoError(t, ioutil.WriteFile(cfg.General.File, bytes.Repeat([]byte{0xaa}, 0x100), 0644))

	require.NoError(t, flash(context.Background(), cfg))

	got, err := ioutil.ReadFile(filepath.Join(dir, "flash.img"))
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 0x1000-0x100), got[0x100:0x1000])
	assert.Equal(t, bytes.Repeat([]byte{0x11}, 0x1000), got[0x1000:])
}

func TestFlashOutOfRange(t *testing.T) {
	dir, err := ioutil.TempDir("", "rover")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	cfg := flashConfig(t, dir)
	cfg.General.BaseAddress = 0x7ff00
	require.NoError(t, ioutil.WriteFile(cfg.General.File, make([]byte, 0x200), 0644))

	err = flash(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, plan.IsSegmentOutOfRange(err))

	buf := bytes.NewBuffer(nil)
	printError(buf, err)
	assert.Contains(t, buf.String(), "The following flash memory is available for the chip 'nRF52832_xxAA':")
	assert.Contains(t, buf.String(), "0x00000000 - 0x00080000 (512 KiB)")
	_, err = os.Stat(filepath.Join(dir, "flash.img"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadRange(t *testing.T) {
	reg := chip.NewRegistry()
	desc, err := reg.Resolve("nRF52832_xxAA")
	require.NoError(t, err)
	m := probe.NewMemory(desc.SortedRegions())
	require.NoError(t, m.Load(0x7ff00, bytes.Repeat([]byte{0x5a}, 0x100)))

	segs, err := readRange(context.Background(), m, desc, 0x7fe00, 0x200)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, uint64(0x7fe00), segs[0].Address)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 0x100), segs[0].Data[:0x100])
	assert.Equal(t, bytes.Repeat([]byte{0x5a}, 0x100), segs[0].Data[0x100:])

	_, err = readRange(context.Background(), m, desc, 0x7ff00, 0x200)
	assert.True(t, errors.IsNotValid(err))
}

func TestHints(t *testing.T) {
	diag.chip, diag.selector, diag.speed = nil, "", 0

	buf := bytes.NewBuffer(nil)
	printError(buf, errors.Trace(&chip.NotFoundError{Name: "nrf99"}))
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, `       Error chip "nrf99" was not found in the database`, lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "        Hint Make sure the chip name is spelled correctly.", lines[2])
	assert.Equal(t, "             Run 'rover list-chips' to see the supported chips.", lines[3])

	h := hints(errors.Trace(&chip.AmbiguousError{Name: "nrf51", Candidates: []string{"nRF51822_xxAA", "nRF51822_xxAC"}}))
	require.Len(t, h, 1)
	assert.Contains(t, h[0], "nRF51822_xxAC")

	h = hints(errors.Trace(&engine.FlashError{Kind: engine.ProbeRejected, Op: plan.Operation{Kind: plan.OpErase}}))
	assert.Equal(t, []string{"Perhaps your chip has write protected sectors that need to be cleared?"}, h)

	diag.speed = 4000
	h = hints(errors.Trace(&engine.FlashError{Kind: engine.ProbeCommunication}))
	require.Len(t, h, 2)
	assert.Equal(t, "Try specifying a speed lower than 4000 kHz with --probe.speed.", h[0])

	h = hints(errors.Trace(&probe.MultipleProbesError{Probes: []probe.Info{
		{VID: 0x0483, PID: 0x374b, Name: "ST-Link/V2-1", Serial: "A1"},
		{VID: 0x2e8a, PID: 0x000c, Name: "Raspberry Pi Debug Probe", Serial: "B2"},
	}}))
	require.Len(t, h, 1)
	assert.Contains(t, h[0], "[0]: ST-Link/V2-1 -- 0483:374b:A1")
	assert.Contains(t, h[0], "[1]: Raspberry Pi Debug Probe -- 2e8a:000c:B2")

	// Not supported without a probe involved is not a probe problem.
	assert.Nil(t, hints(errors.NotSupportedf("ELF images")))
}
