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
package multierror

import (
	"testing"

	"github.com/juju/errors"
)

func TestAppend(t *testing.T) {
	var err error
	err = Append(err, nil, nil)
	if err != nil {
		t.Fatalf("appending nils must keep nil, got %v", err)
	}

	err = Append(err, errors.Errorf("an error"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if got, want := err.Error(), "an error"; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}

	err = Append(err, nil, errors.Errorf("another error"))
	if got, want := err.Error(), `2 errors occurred:
  an error
  another error`; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}

	err = errors.Errorf("old error")
	err = Append(err, errors.Errorf("new error"))
	if got, want := len(Errors(err)), 2; got != want {
		t.Errorf("got: %d, want: %d", got, want)
	}
	if got, want := err.Error(), `2 errors occurred:
  old error
  new error`; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
}

func TestErrors(t *testing.T) {
	if got := Errors(nil); got != nil {
		t.Errorf("got: %v, want nil", got)
	}
	plain := errors.Errorf("plain")
	if got := Errors(plain); len(got) != 1 || got[0] != plain {
		t.Errorf("got: %v", got)
	}
}
