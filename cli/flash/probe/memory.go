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
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/flash/chip"
)

// Access is a record of one operation performed on a Memory.
type Access struct {
	Op     string
	Addr   uint64
	Length uint64
}

// Fault makes a Memory fail operations. A fault matches an operation of kind
// Op (any kind if empty) whose range contains Addr. It fires Times times, or
// forever if Times is 0.
type Fault struct {
	Op    string
	Addr  uint64
	Err   error
	Times int
}

// Memory is a simulated target. Its flash behaves like NOR flash: erasing
// sets cells to the region's erased value and programming can only move
// bits away from it.
type Memory struct {
	mu      sync.Mutex
	regions []chip.Region
	cells   map[int][]byte
	stuck   map[uint64]byte
	faults  []*Fault
	log     []Access
	high    uint64
	resets  int
	closed  bool
}

func NewMemory(regions []chip.Region) *Memory {
	rr := append([]chip.Region(nil), regions...)
	sort.Slice(rr, func(i, j int) bool { return rr[i].Start < rr[j].Start })
	return &Memory{
		regions: rr,
		cells:   map[int][]byte{},
		stuck:   map[uint64]byte{},
	}
}

// Inject adds a fault.
func (m *Memory) Inject(f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, &f)
}

// Stick makes the cell at addr always read back as v.
func (m *Memory) Stick(addr uint64, v byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stuck[addr] = v
}

// Accesses returns every operation attempted so far, including failed ones.
func (m *Memory) Accesses() []Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Access(nil), m.log...)
}

func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Load places data into memory directly, bypassing flash semantics.
func (m *Memory) Load(addr uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, off, err := m.locate("load", addr, uint64(len(data)))
	if err != nil {
		return errors.Trace(err)
	}
	copy(buf[off:], data)
	return nil
}

// Contents returns memory contents without going through the session.
func (m *Memory) Contents(addr, length uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, off, err := m.locate("read", addr, length)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return append([]byte(nil), buf[off:off+length]...), nil
}

func (m *Memory) Erase(ctx context.Context, addr, length uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("erase", addr, length); err != nil {
		return err
	}
	ri := m.regionIndex(addr, length)
	if ri < 0 {
		return &RejectedError{Op: "erase", Addr: addr, Reason: "outside flash"}
	}
	r := m.regions[ri]
	if eu := uint64(r.EraseUnit); addr%eu != 0 || length%eu != 0 {
		return &RejectedError{Op: "erase", Addr: addr, Reason: "not aligned to the erase unit"}
	}
	if !r.PartialErase && (addr != r.Start || length != r.Length) {
		return &RejectedError{Op: "erase", Addr: addr, Reason: "region can only be erased as a whole"}
	}
	buf, off, _ := m.locate("erase", addr, length)
	for i := off; i < off+length; i++ {
		buf[i] = r.ErasedValue
	}
	m.touch(addr + length)
	glog.V(3).Infof("mem: erased 0x%08x+0x%x", addr, length)
	return nil
}

func (m *Memory) Write(ctx context.Context, addr uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	length := uint64(len(data))
	if err := m.begin("write", addr, length); err != nil {
		return err
	}
	ri := m.regionIndex(addr, length)
	if ri < 0 {
		return &RejectedError{Op: "write", Addr: addr, Reason: "outside flash"}
	}
	erased := m.regions[ri].ErasedValue
	buf, off, _ := m.locate("write", addr, length)
	for i, b := range data {
		c := &buf[off+uint64(i)]
		switch erased {
		case 0xff:
			*c &= b
		case 0x00:
			*c |= b
		default:
			*c = b
		}
	}
	m.touch(addr + length)
	glog.V(3).Infof("mem: wrote 0x%08x+0x%x", addr, length)
	return nil
}

func (m *Memory) Read(ctx context.Context, addr, length uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("read", addr, length); err != nil {
		return nil, err
	}
	buf, off, err := m.locate("read", addr, length)
	if err != nil {
		return nil, err
	}
	res := append([]byte(nil), buf[off:off+length]...)
	for a, v := range m.stuck {
		if a >= addr && a < addr+length {
			res[a-addr] = v
		}
	}
	return res, nil
}

func (m *Memory) Reset(ctx context.Context, halt bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("reset", 0, 0); err != nil {
		return err
	}
	m.resets++
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("session already closed")
	}
	m.closed = true
	return nil
}

// begin logs the access and applies faults. Must be called with mu held.
func (m *Memory) begin(op string, addr, length uint64) error {
	if m.closed {
		return errors.Errorf("%s on a closed session", op)
	}
	m.log = append(m.log, Access{Op: op, Addr: addr, Length: length})
	for i, f := range m.faults {
		if f.Op != "" && f.Op != op {
			continue
		}
		if f.Addr < addr || (f.Addr >= addr+length && !(length == 0 && f.Addr == addr)) {
			continue
		}
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				m.faults = append(m.faults[:i], m.faults[i+1:]...)
			}
		}
		return f.Err
	}
	return nil
}

func (m *Memory) regionIndex(addr, length uint64) int {
	for i, r := range m.regions {
		if r.Contains(addr, length) {
			return i
		}
	}
	return -1
}

// locate returns the backing buffer of the region holding [addr, addr+length)
// and the offset of addr in it.
func (m *Memory) locate(op string, addr, length uint64) ([]byte, uint64, error) {
	ri := m.regionIndex(addr, length)
	if ri < 0 {
		return nil, 0, &RejectedError{Op: op, Addr: addr, Reason: "outside flash"}
	}
	r := m.regions[ri]
	buf := m.cells[ri]
	if buf == nil {
		buf = bytes.Repeat([]byte{r.ErasedValue}, int(r.Length))
		m.cells[ri] = buf
	}
	return buf, addr - r.Start, nil
}

func (m *Memory) touch(end uint64) {
	if end > m.high {
		m.high = end
	}
}
