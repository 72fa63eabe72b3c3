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
package chip

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// NotFoundError is returned when no variant matches the requested name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("chip %q was not found in the database", e.Name)
}

// AmbiguousError is returned when more than one variant matches.
type AmbiguousError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("chip name %q is ambiguous, it matches %s", e.Name, strings.Join(e.Candidates, ", "))
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsAmbiguous(err error) bool {
	_, ok := errors.Cause(err).(*AmbiguousError)
	return ok
}
