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

import "golang.org/x/exp/constraints"

func alignDown[T constraints.Unsigned](v, a T) T {
	return v - v%a
}

func alignUp[T constraints.Unsigned](v, a T) T {
	if r := v % a; r != 0 {
		return v + a - r
	}
	return v
}

func minOf[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func maxOf[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// span is a half-open address range.
type span[T constraints.Unsigned] struct {
	start, end T
}

// coalesce merges sorted ranges that overlap or touch.
func coalesce[T constraints.Unsigned](ss []span[T]) []span[T] {
	var res []span[T]
	for _, s := range ss {
		if n := len(res); n > 0 && s.start <= res[n-1].end {
			res[n-1].end = maxOf(res[n-1].end, s.end)
			continue
		}
		res = append(res, s)
	}
	return res
}
