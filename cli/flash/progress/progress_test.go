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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueuePreservesOrder(t *testing.T) {
	var got []int
	release := make(chan struct{})
	q := NewQueue(Func(func(e Event) {
		<-release
		got = append(got, e.Index)
	}))
	// The sink is stuck, Event must still return immediately.
	start := time.Now()
	for i := 0; i < 1000; i++ {
		q.Event(Event{Index: i})
	}
	assert.True(t, time.Since(start) < 5*time.Second)
	close(release)
	q.Close()
	assert.Len(t, got, 1000)
	for i, idx := range got {
		if idx != i {
			t.Fatalf("event %d delivered at position %d", idx, i)
		}
	}
}

func TestQueueDropsAfterClose(t *testing.T) {
	var mu sync.Mutex
	n := 0
	q := NewQueue(Func(func(e Event) {
		mu.Lock()
		n++
		mu.Unlock()
	}))
	q.Event(Event{})
	q.Close()
	q.Event(Event{})
	q.Close()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, n)
}

func TestEventString(t *testing.T) {
	e := Event{Phase: Program, Kind: Step, Index: 3, Address: 0x100, Size: 256, PhaseDone: 512, PhaseTotal: 1024}
	assert.Equal(t, "program step #3 0x00000100+256 512/1024", e.String())
	e = Event{Phase: Verify, Kind: Started, Index: -1, PhaseTotal: 10}
	assert.Equal(t, "verify started 0/10", e.String())
	Emit(nil, e)
}
