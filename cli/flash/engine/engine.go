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
	"bytes"
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/flash/plan"
	"github.com/mongoose-os/rover/cli/flash/probe"
	"github.com/mongoose-os/rover/cli/flash/progress"
)

const (
	DefaultAttempts = 3
	// At most this many mismatches are kept in a VerificationResult.
	maxMismatches = 1024
)

type Options struct {
	Verify bool
	// Attempts is how many times an operation that timed out is tried.
	Attempts int
	Progress progress.Sink
	// Reset the target after a successful run, if the session supports it.
	Reset bool
	Halt  bool
}

// VerificationResult lists the bytes that did not read back as written.
// No mismatches means the device holds exactly what the plan wrote.
type VerificationResult struct {
	Mismatches []Mismatch
	// Count is the total number of mismatched bytes, Mismatches may hold fewer.
	Count    uint64
	Checked  uint64
	Verified bool
}

func (v *VerificationResult) OK() bool {
	return v.Count == 0
}

// Err returns a *MismatchError if verification found differences.
func (v *VerificationResult) Err() error {
	if v == nil || v.Count == 0 {
		return nil
	}
	return &MismatchError{Mismatches: v.Mismatches, Count: v.Count}
}

type executor struct {
	plan     *plan.Plan
	s        probe.Session
	opts     Options
	start    time.Time
	last     int
	done     uint64
	total    uint64
	phase    progress.Phase
	inPhase  bool
	phDone   uint64
	phTotals map[progress.Phase]uint64
	// Mismatches found by the last compare.
	pending  []Mismatch
}

// Execute runs a finalized plan against the session: all operations in order,
// then, if requested, a read back of everything written. The session is
// closed before Execute returns, whatever the outcome.
// Mismatches found by verification are reported in the result, not as an error.
func Execute(ctx context.Context, p *plan.Plan, s probe.Session, opts Options) (res *VerificationResult, err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil {
			if err == nil {
				err = errors.Annotatef(cerr, "failed to close probe session")
			} else {
				glog.Warningf("failed to close probe session: %s", cerr)
			}
		}
	}()
	if !p.Finalized() {
		return nil, errors.Trace(&plan.NotFinalizedError{})
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	e := &executor{
		plan:  p,
		s:     s,
		opts:  opts,
		start: time.Now(),
		last:  -1,
		total: p.EraseBytes() + p.WriteBytes(),
		phTotals: map[progress.Phase]uint64{
			progress.Erase:   p.EraseBytes(),
			progress.Program: p.WriteBytes(),
			progress.Verify:  p.WriteBytes(),
		},
	}
	glog.V(1).Infof("executing %s", p)

	for i := 0; i < p.Len(); i++ {
		op := p.Op(i)
		if err := ctx.Err(); err != nil {
			return nil, e.fail(&FlashError{Kind: Cancelled, Index: i, Op: op, err: err})
		}
		ph := progress.Erase
		if op.Kind == plan.OpWrite {
			ph = progress.Program
		}
		e.enter(ph)
		if err := e.do(ctx, i, op, false); err != nil {
			return nil, e.fail(err)
		}
		e.last = i
		e.done += op.Length
		e.phDone += op.Length
		e.emit(progress.Step, i, &op, nil)
	}
	e.leave()

	res = &VerificationResult{}
	if opts.Verify {
		if err := e.verify(ctx, res); err != nil {
			return nil, e.fail(err)
		}
		e.leave()
	}
	if opts.Reset {
		if r, ok := s.(probe.Resetter); ok {
			if err := r.Reset(ctx, opts.Halt); err != nil {
				return res, errors.Annotatef(err, "failed to reset the target")
			}
		} else {
			glog.Warningf("probe session does not support reset")
		}
	}
	glog.Infof("%d operations done in %s", p.Len(), time.Since(e.start))
	return res, nil
}

// do performs one operation, repeating it while it times out.
func (e *executor) do(ctx context.Context, i int, op plan.Operation, verify bool) error {
	var err error
	for attempt := 1; attempt <= e.opts.Attempts; attempt++ {
		var data []byte
		switch {
		case verify:
			data, err = e.s.Read(ctx, op.Address, op.Length)
			if err == nil {
				err = e.compare(op, data)
			}
		case op.Kind == plan.OpErase:
			err = e.s.Erase(ctx, op.Address, op.Length)
		default:
			err = e.s.Write(ctx, op.Address, op.Data)
		}
		if err == nil {
			glog.V(1).Infof("#%d %s ok", i, &op)
			return nil
		}
		fe := &FlashError{Index: i, LastCompleted: e.last, Op: op, Attempts: attempt, Verifying: verify, err: err}
		switch c := errors.Cause(err); {
		case c == context.Canceled || c == context.DeadlineExceeded:
			fe.Kind = Cancelled
			return fe
		case probe.IsRejected(err):
			fe.Kind = ProbeRejected
			return fe
		case !probe.IsTimeout(err):
			fe.Kind = ProbeCommunication
			return fe
		}
		glog.Warningf("#%d %s: %s (attempt %d of %d)", i, &op, err, attempt, e.opts.Attempts)
	}
	return &FlashError{
		Kind: ProbeCommunication, Index: i, LastCompleted: e.last, Op: op,
		Attempts: e.opts.Attempts, Verifying: verify, err: err,
	}
}

// compare collects mismatches of a read back page. It runs as part of the
// verify operation so a short read can be retried like a timeout.
func (e *executor) compare(op plan.Operation, data []byte) error {
	if uint64(len(data)) < op.Length {
		return &probe.TimeoutError{Op: "read", Addr: op.Address + uint64(len(data))}
	}
	e.pending = e.pending[:0]
	if bytes.Equal(data[:op.Length], op.Data) {
		return nil
	}
	for k := range op.Data {
		if data[k] != op.Data[k] {
			e.pending = append(e.pending, Mismatch{Address: op.Address + uint64(k), Expected: op.Data[k], Actual: data[k]})
		}
	}
	return nil
}

func (e *executor) verify(ctx context.Context, res *VerificationResult) error {
	e.enter(progress.Verify)
	for i := 0; i < e.plan.Len(); i++ {
		op := e.plan.Op(i)
		if op.Kind != plan.OpWrite {
			continue
		}
		if err := ctx.Err(); err != nil {
			return &FlashError{Kind: Cancelled, Index: i, LastCompleted: e.last, Op: op, Verifying: true, err: err}
		}
		if err := e.do(ctx, i, op, true); err != nil {
			return err
		}
		res.Checked += op.Length
		for _, m := range e.pending {
			res.Count++
			if len(res.Mismatches) < maxMismatches {
				res.Mismatches = append(res.Mismatches, m)
			}
		}
		e.phDone += op.Length
		e.emit(progress.Step, i, &op, nil)
	}
	res.Verified = true
	if res.Count > 0 {
		glog.Infof("verification: %d of %d bytes differ", res.Count, res.Checked)
	}
	return nil
}

func (e *executor) enter(ph progress.Phase) {
	if e.inPhase && e.phase == ph {
		return
	}
	e.leave()
	e.phase, e.inPhase, e.phDone = ph, true, 0
	e.emit(progress.Started, -1, nil, nil)
}

func (e *executor) leave() {
	if e.inPhase {
		e.emit(progress.Finished, -1, nil, nil)
		e.inPhase = false
	}
}

func (e *executor) fail(err error) error {
	if fe, ok := err.(*FlashError); ok {
		fe.LastCompleted = e.last
		if e.inPhase {
			e.emit(progress.Failed, fe.Index, &fe.Op, fe)
			e.inPhase = false
		}
	}
	return errors.Trace(err)
}

func (e *executor) emit(kind progress.Kind, i int, op *plan.Operation, err error) {
	ev := progress.Event{
		Phase:      e.phase,
		Kind:       kind,
		Index:      i,
		PhaseDone:  e.phDone,
		PhaseTotal: e.phTotals[e.phase],
		Done:       e.done,
		Total:      e.total,
		Elapsed:    time.Since(e.start),
		Err:        err,
	}
	if op != nil {
		ev.Address, ev.Size = op.Address, op.Length
	}
	progress.Emit(e.opts.Progress, ev)
}
