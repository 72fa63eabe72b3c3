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
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/mongoose-os/rover/cli/ourutil"
)

const (
	LatestVersionName = "latest"
)

var (
	regexpVersionNumber = regexp.MustCompile(`^\d+\.[0-9.]*$`)
	regexpBuildIdDistr  = regexp.MustCompile(`^(?P<version>[^+]+)\+(?P<hash>[^~]+)\~(?P<distr>[^\d]+)\d+$`)
)

// GetVersion returns this binary's version, or "latest" if it's not a release build.
func GetVersion() string {
	if LooksLikeVersionNumber(Version) {
		return Version
	}
	return LatestVersionName
}

func LooksLikeVersionNumber(s string) bool {
	return regexpVersionNumber.MatchString(s)
}

// GetBuildIDParts splits a distro build id like "1.2+abcdef~bionic1" into
// version, hash and distr. Returns nil if s is not one.
func GetBuildIDParts(s string) map[string]string {
	return ourutil.FindNamedSubmatches(regexpBuildIdDistr, s)
}

func LooksLikeBrewBuildId(s string) bool {
	return strings.HasSuffix(s, "~brew")
}

func GetUserAgent() string {
	return fmt.Sprintf("rover/%s %s (%s; %s)", Version, BuildId, runtime.GOOS, runtime.GOARCH)
}

// Describe is what "rover version" prints.
func Describe() string {
	s := fmt.Sprintf("rover %s", GetVersion())
	if parts := GetBuildIDParts(BuildId); parts != nil {
		s += fmt.Sprintf(" (%s package, commit %s)", strings.TrimRight(parts["distr"], "0123456789"), parts["hash"])
	} else if LooksLikeBrewBuildId(BuildId) {
		s += " (brew)"
	}
	if BuildId != "" {
		s += fmt.Sprintf("\nBuild ID: %s", BuildId)
	}
	return s
}
