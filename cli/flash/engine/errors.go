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
package engine

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/flash/plan"
)

type ErrorKind int

const (
	// ProbeCommunication is a failure to talk to the probe. Timeouts end up
	// here after all attempts are used up.
	ProbeCommunication ErrorKind = iota
	// ProbeRejected means the target refused the operation.
	ProbeRejected
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ProbeCommunication:
		return "probe communication error"
	case ProbeRejected:
		return "rejected by target"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FlashError describes where execution of a plan stopped.
type FlashError struct {
	Kind ErrorKind
	// Index of the operation that failed.
	Index int
	// LastCompleted is the index of the last operation that finished, -1 if none did.
	LastCompleted int
	Op            plan.Operation
	Attempts      int
	// Verifying is set if the failure happened while reading back.
	Verifying bool

	err error
}

func (e *FlashError) Error() string {
	what := e.Op.String()
	if e.Verifying {
		what = fmt.Sprintf("verify 0x%08x+0x%x", e.Op.Address, e.Op.Length)
	}
	s := fmt.Sprintf("%s: operation #%d (%s) failed", e.Kind, e.Index, what)
	if e.Attempts > 1 {
		s += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

func (e *FlashError) Underlying() error {
	return e.err
}

// Mismatch is a byte that did not read back as written.
type Mismatch struct {
	Address  uint64
	Expected byte
	Actual   byte
}

func (m Mismatch) String() string {
	return fmt.Sprintf("0x%08x: expected 0x%02x, got 0x%02x", m.Address, m.Expected, m.Actual)
}

// MismatchError is the error form of a failed verification.
type MismatchError struct {
	Mismatches []Mismatch
	Count      uint64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("verification failed, %d bytes differ, the first at %s", e.Count, e.Mismatches[0])
}

func asFlashError(err error) (*FlashError, bool) {
	fe, ok := errors.Cause(err).(*FlashError)
	return fe, ok
}

func IsProbeCommunication(err error) bool {
	fe, ok := asFlashError(err)
	return ok && fe.Kind == ProbeCommunication
}

func IsProbeRejected(err error) bool {
	fe, ok := asFlashError(err)
	return ok && fe.Kind == ProbeRejected
}

func IsCancelled(err error) bool {
	fe, ok := asFlashError(err)
	return ok && fe.Kind == Cancelled
}

func IsMismatch(err error) bool {
	_, ok := errors.Cause(err).(*MismatchError)
	return ok
}
