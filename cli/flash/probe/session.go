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
	"context"
	"fmt"

	"github.com/juju/errors"
)

// Session is exclusive access to a target's flash through a probe.
// Calls are synchronous. Once Close has been called the session is unusable.
type Session interface {
	Erase(ctx context.Context, addr, length uint64) error
	Write(ctx context.Context, addr uint64, data []byte) error
	Read(ctx context.Context, addr, length uint64) ([]byte, error)
	Close() error
}

// Resetter is implemented by sessions that can reset the target.
type Resetter interface {
	Reset(ctx context.Context, halt bool) error
}

// TimeoutError is a transient failure: the probe did not answer in time
// and the operation may succeed if repeated.
type TimeoutError struct {
	Op   string
	Addr uint64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s at 0x%08x timed out", e.Op, e.Addr)
}

func (e *TimeoutError) Timeout() bool { return true }

// RejectedError means the target refused the operation, e.g. because the
// flash is write protected. Repeating it will not help.
type RejectedError struct {
	Op     string
	Addr   uint64
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s at 0x%08x rejected: %s", e.Op, e.Addr, e.Reason)
}

func (e *RejectedError) Rejected() bool { return true }

type timeout interface {
	Timeout() bool
}

type rejected interface {
	Rejected() bool
}

// IsTimeout reports whether err is transient. Any error with a
// Timeout() bool method that returns true qualifies.
func IsTimeout(err error) bool {
	t, ok := errors.Cause(err).(timeout)
	return ok && t.Timeout()
}

// IsRejected reports whether the target refused the operation.
func IsRejected(err error) bool {
	r, ok := errors.Cause(err).(rejected)
	return ok && r.Rejected()
}

// NoProbesError is returned when automatic selection finds nothing.
type NoProbesError struct{}

func (e *NoProbesError) Error() string {
	return "no supported probes found"
}

// MultipleProbesError is returned when automatic selection is ambiguous.
type MultipleProbesError struct {
	Probes []Info
}

func (e *MultipleProbesError) Error() string {
	return fmt.Sprintf("%d probes found, please select one", len(e.Probes))
}

func IsNoProbes(err error) bool {
	_, ok := errors.Cause(err).(*NoProbesError)
	return ok
}

func IsMultipleProbes(err error) bool {
	_, ok := errors.Cause(err).(*MultipleProbesError)
	return ok
}
