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
package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildIDParts(t *testing.T) {
	assert.Equal(t, map[string]string{
		"version": "1.2.3",
		"hash":    "1a2b3c",
		"distr":   "bionic",
	}, GetBuildIDParts("1.2.3+1a2b3c~bionic1"))
	assert.Nil(t, GetBuildIDParts("20201010-120000/master@1a2b3c"))
	assert.True(t, LooksLikeVersionNumber("1.25"))
	assert.False(t, LooksLikeVersionNumber("latest"))
}

func TestDescribe(t *testing.T) {
	v, b := Version, BuildId
	defer func() { Version, BuildId = v, b }()

	Version, BuildId = "1.4", "1.4+deadbeef~focal1"
	assert.Equal(t, "rover 1.4 (focal package, commit deadbeef)\nBuild ID: 1.4+deadbeef~focal1", Describe())
	Version, BuildId = "dev", ""
	assert.Equal(t, "rover latest", Describe())
}
