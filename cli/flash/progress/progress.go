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
package progress

import (
	"fmt"
	"sync"
	"time"
)

type Phase int

const (
	// Fill reads back device contents for bytes the image does not cover.
	Fill Phase = iota
	Erase
	Program
	Verify
)

func (p Phase) String() string {
	switch p {
	case Fill:
		return "fill"
	case Erase:
		return "erase"
	case Program:
		return "program"
	case Verify:
		return "verify"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

type Kind int

const (
	Started Kind = iota
	Step
	Finished
	Failed
)

func (k Kind) String() string {
	switch k {
	case Started:
		return "started"
	case Step:
		return "step"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event reports one step of a flashing run. Done and Total count bytes across
// the erase and program phases; PhaseDone and PhaseTotal count the current
// phase only.
type Event struct {
	Phase Phase
	Kind  Kind
	// Index of the plan operation, -1 if the event is not tied to one.
	Index   int
	Address uint64
	Size    uint64

	PhaseDone  uint64
	PhaseTotal uint64
	Done       uint64
	Total      uint64

	Elapsed time.Duration
	Err     error
}

func (e Event) String() string {
	s := fmt.Sprintf("%s %s", e.Phase, e.Kind)
	if e.Index >= 0 {
		s += fmt.Sprintf(" #%d 0x%08x+%d", e.Index, e.Address, e.Size)
	}
	s += fmt.Sprintf(" %d/%d", e.PhaseDone, e.PhaseTotal)
	if e.Err != nil {
		s += fmt.Sprintf(": %s", e.Err)
	}
	return s
}

// Sink receives events. Implementations must not block for long: the
// engine waits for Event to return before it issues the next operation.
type Sink interface {
	Event(e Event)
}

type Func func(e Event)

func (f Func) Event(e Event) {
	f(e)
}

// Emit sends e to s, which may be nil.
func Emit(s Sink, e Event) {
	if s != nil {
		s.Event(e)
	}
}

// Queue decouples producers from a slow sink. Events are delivered in the
// order they were queued, from a single goroutine. Event never blocks.
type Queue struct {
	sink Sink

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []Event
	closed bool
	done   chan struct{}
}

func NewQueue(sink Sink) *Queue {
	q := &Queue{sink: sink, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

func (q *Queue) Event(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.buf = append(q.buf, e)
	q.cond.Signal()
}

// Close stops accepting events and waits until the queued ones are delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.buf) == 0 && !q.closed {
			q.cond.Wait()
		}
		batch := q.buf
		q.buf = nil
		closed := q.closed
		q.mu.Unlock()
		for _, e := range batch {
			q.sink.Event(e)
		}
		if closed && len(batch) == 0 {
			return
		}
	}
}
