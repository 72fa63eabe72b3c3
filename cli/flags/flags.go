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
package flags

import (
	flag "github.com/spf13/pflag"
)

// Flags named <section>.<key> override the corresponding key of the selected
// profile, see config.FlagKey.
var (
	Profile = flag.String("profile", "default", "Configuration profile to use")
	WorkDir = flag.String("work-dir", "", "Directory to read Rover.yaml and Rover.local.yaml from, defaults to the current one")

	Chip              = flag.String("general.chip", "", "Target chip, e.g. STM32F103C8. See list-chips")
	ChipDescriptions  = flag.StringSlice("general.chip-descriptions", nil, "Additional chip description files (YAML), applied in order")
	LogLevel          = flag.String("general.log-level", "", "Log level: error, warn, info, debug or trace")
	ConnectUnderReset = flag.Bool("general.connect-under-reset", false, "Assert reset while attaching to the target")
	File              = flag.String("general.file", "", "Image to flash, can also be given as an argument")
	Format            = flag.String("general.format", "", "Image format: bin or hex. Guessed from the extension if not set")
	BaseAddress       = flag.Uint64("general.base-address", 0, "Where to place a binary image, defaults to the start of flash")
	Skip              = flag.Uint64("general.skip", 0, "Number of bytes at the start of a binary image to leave out")

	FlashingEnabled       = flag.Bool("flashing.enabled", false, "Flash the image")
	RestoreUnwrittenBytes = flag.Bool("flashing.restore-unwritten-bytes", false, "Preserve flash contents the image does not cover")
	FlashLayoutOutputPath = flag.String("flashing.flash-layout-output-path", "", "Save the flash layout to this file (.svg, .yaml or text)")
	DoChipErase           = flag.Bool("flashing.do-chip-erase", false, "Erase all touched flash regions entirely")
	Verify                = flag.Bool("flashing.verify", false, "Read back and compare everything written")

	ProbeSelector = flag.String("probe.selector", "", "Probe to use: VID:PID[:SERIAL], mem or file:<path>. Not needed if there is only one")
	ProbeSpeed    = flag.Uint("probe.speed", 0, "Probe speed in kHz")

	ResetEnabled   = flag.Bool("reset.enabled", false, "Reset the target after flashing")
	HaltAfterwards = flag.Bool("reset.halt-afterwards", false, "Halt the target after the reset")

	DryRun              = flag.Bool("dry-run", false, "Do everything against a simulated target")
	DisableProgressbars = flag.Bool("disable-progressbars", false, "Do not report progress")

	Attempts = flag.Int("attempts", 3, "How many times to try an operation that timed out")
	Output   = flag.StringP("output", "o", "", "Output file")
)
