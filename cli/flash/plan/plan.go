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
	"fmt"

	"github.com/mongoose-os/rover/cli/flash/chip"
)

type OpKind int

const (
	OpErase OpKind = iota
	OpWrite
)

func (k OpKind) String() string {
	if k == OpErase {
		return "erase"
	}
	return "write"
}

// Span is a byte range relative to the start of a write.
type Span struct {
	Offset uint64
	Length uint64
}

// Operation is a single device command. Erases use Address and Length,
// writes carry exactly one page of Data.
type Operation struct {
	Kind    OpKind
	Address uint64
	Length  uint64
	Data    []byte

	// Region is the name of the region the operation targets.
	Region string
	// Fill is the erased value of the target region.
	Fill byte
	// Gaps are the parts of a write that no image segment covers.
	Gaps []Span
	// Preserve marks a write that exists only to restore erased bytes.
	Preserve bool
}

func (op *Operation) End() uint64 {
	return op.Address + op.Length
}

func (op *Operation) String() string {
	s := fmt.Sprintf("%s 0x%08x+0x%x", op.Kind, op.Address, op.Length)
	if op.Preserve {
		s += " (preserve)"
	}
	return s
}

// Plan is the ordered list of operations needed to put an image on a chip.
// A plan must not be modified once built.
type Plan struct {
	ops []Operation
	// ImageBytes is the number of image bytes the plan places.
	ImageBytes uint64
	Regions    []chip.Region
	Policy     Policy
	finalized  bool
}

// Ops returns the operations in execution order.
func (p *Plan) Ops() []Operation {
	return append([]Operation(nil), p.ops...)
}

func (p *Plan) Len() int {
	return len(p.ops)
}

func (p *Plan) Op(i int) Operation {
	return p.ops[i]
}

// Finalized reports whether the unwritten bytes of the plan were resolved.
func (p *Plan) Finalized() bool {
	return p.finalized
}

// Writes returns the write operations in address order.
func (p *Plan) Writes() []Operation {
	return p.filter(OpWrite)
}

// Erases returns the erase operations in address order.
func (p *Plan) Erases() []Operation {
	return p.filter(OpErase)
}

func (p *Plan) filter(k OpKind) []Operation {
	var res []Operation
	for _, op := range p.ops {
		if op.Kind == k {
			res = append(res, op)
		}
	}
	return res
}

func (p *Plan) EraseBytes() uint64 {
	return p.sum(OpErase)
}

func (p *Plan) WriteBytes() uint64 {
	return p.sum(OpWrite)
}

func (p *Plan) sum(k OpKind) uint64 {
	var n uint64
	for _, op := range p.ops {
		if op.Kind == k {
			n += op.Length
		}
	}
	return n
}

// GapBytes is the number of written bytes not covered by the image.
func (p *Plan) GapBytes() uint64 {
	var n uint64
	for _, op := range p.ops {
		for _, g := range op.Gaps {
			n += g.Length
		}
	}
	return n
}

func (p *Plan) String() string {
	return fmt.Sprintf("%d erases (%d bytes), %d writes (%d bytes), %d image bytes",
		len(p.Erases()), p.EraseBytes(), len(p.Writes()), p.WriteBytes(), p.ImageBytes)
}
