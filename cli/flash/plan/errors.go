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

	"github.com/juju/errors"

	"github.com/mongoose-os/rover/cli/flash/image"
)

// SegmentOutOfRangeError is returned for a segment that does not fit entirely
// within one flash region.
type SegmentOutOfRangeError struct {
	Segment image.Segment
}

func (e *SegmentOutOfRangeError) Error() string {
	return fmt.Sprintf("segment %s at 0x%08x-0x%08x does not fit into any flash region",
		e.Segment.Name, e.Segment.Address, e.Segment.End())
}

// OverlappingTargetError means two segments still target the same bytes after
// normalization.
type OverlappingTargetError struct {
	First, Second image.Segment
}

func (e *OverlappingTargetError) Error() string {
	return fmt.Sprintf("segments %s and %s overlap at 0x%08x",
		e.First.Name, e.Second.Name, e.Second.Address)
}

// NotFinalizedError is returned when a raw plan is given where a merged one is required.
type NotFinalizedError struct{}

func (e *NotFinalizedError) Error() string {
	return "plan has not been merged with device contents"
}

func IsSegmentOutOfRange(err error) bool {
	_, ok := errors.Cause(err).(*SegmentOutOfRangeError)
	return ok
}

func IsOverlappingTarget(err error) bool {
	_, ok := errors.Cause(err).(*OverlappingTargetError)
	return ok
}

func IsNotFinalized(err error) bool {
	_, ok := errors.Cause(err).(*NotFinalizedError)
	return ok
}
