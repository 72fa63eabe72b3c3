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
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/juju/errors"
	yaml "gopkg.in/yaml.v2"
)

const DefaultProfile = "default"

// Files are merged over the built-in profiles in this order.
var Files = []string{"Rover.yaml", "Rover.local.yaml"}

type node = map[interface{}]interface{}

// Profiles is a set of named, unresolved configurations.
type Profiles struct {
	raw     map[string]node
	Sources []string
}

// CycleError is returned when profiles derive from each other in a loop.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("profiles derive from each other in a cycle: %s", strings.Join(e.Path, " -> "))
}

func IsCycle(err error) bool {
	_, ok := errors.Cause(err).(*CycleError)
	return ok
}

// NewProfiles returns the built-in profiles.
func NewProfiles() *Profiles {
	p := &Profiles{raw: map[string]node{}}
	if err := p.Add([]byte(defaultProfiles), "built-in"); err != nil {
		panic(err)
	}
	return p
}

// Load reads the built-in profiles and then the config files found in dir.
func Load(dir string) (*Profiles, error) {
	p := NewProfiles()
	for _, f := range Files {
		fn := filepath.Join(dir, f)
		data, err := ioutil.ReadFile(fn)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Trace(err)
		}
		if err := p.Add(data, fn); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return p, nil
}

// Add merges a document of profiles over the existing ones.
func (p *Profiles) Add(data []byte, source string) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Annotatef(err, "%s", source)
	}
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := doc[name]
		if v == nil {
			v = node{}
		}
		n, ok := v.(node)
		if !ok {
			return errors.Errorf("%s: profile %q must be a map", source, name)
		}
		if ex, ok := p.raw[name]; ok {
			p.raw[name] = merge(ex, n)
		} else {
			p.raw[name] = merge(node{}, n)
		}
		glog.V(1).Infof("%s: profile %s", source, name)
	}
	p.Sources = append(p.Sources, source)
	return nil
}

func (p *Profiles) Names() []string {
	var res []string
	for name := range p.raw {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Resolve layers the profile over everything it derives from and decodes the
// result. The closer a profile is to name in the derivation graph, the higher
// its priority; among the parents of one profile, later ones win. overrides
// is applied last.
func (p *Profiles) Resolve(name string, overrides map[string]interface{}) (*Config, error) {
	order, err := p.order(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	glog.V(1).Infof("profile %s: %s", name, strings.Join(order, " < "))
	merged := node{}
	for _, n := range order {
		merged = merge(merged, p.raw[n])
	}
	if own := derivesOf(p.raw[name]); own == nil {
		// The derivation chain is not part of the result.
		if g, ok := merged["general"].(node); ok {
			delete(g, "derives")
		}
	}
	for k, v := range overrides {
		setPath(merged, strings.Split(k, "."), v)
	}
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, errors.Annotatef(err, "profile %q", name)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Annotatef(err, "profile %q", name)
	}
	return &c, nil
}

const (
	white = iota
	gray
	black
)

// parentsOf returns the profiles n derives from. Every profile but default
// derives from default unless it says otherwise.
func parentsOf(n string, prof node) []string {
	parents := derivesOf(prof)
	if parents == nil && n != DefaultProfile {
		parents = []string{DefaultProfile}
	}
	return parents
}

// order returns name and its ancestors in the order they are merged: the
// farthest ancestors first, so that the closest override wins. Distance is
// the shortest derivation path. Among ancestors at the same distance, later
// parents come later.
func (p *Profiles) order(name string) ([]string, error) {
	if _, ok := p.raw[name]; !ok {
		return nil, errors.NotFoundf("profile %q (available: %s)", name, strings.Join(p.Names(), ", "))
	}
	state := map[string]int{}
	var res []string
	var visit func(n string, path []string) error
	visit = func(n string, path []string) error {
		switch state[n] {
		case gray:
			return &CycleError{Path: append(append([]string(nil), path...), n)}
		case black:
			return nil
		}
		prof, ok := p.raw[n]
		if !ok {
			return errors.NotFoundf("profile %q, derived by %q,", n, path[len(path)-1])
		}
		state[n] = gray
		for _, par := range parentsOf(n, prof) {
			if err := visit(par, append(path, n)); err != nil {
				return err
			}
		}
		state[n] = black
		res = append(res, n)
		return nil
	}
	if err := visit(name, nil); err != nil {
		return nil, err
	}

	dist := map[string]int{name: 0}
	queue := []string{name}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, par := range parentsOf(n, p.raw[n]) {
			if _, seen := dist[par]; !seen {
				dist[par] = dist[n] + 1
				queue = append(queue, par)
			}
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return dist[res[i]] > dist[res[j]]
	})
	return res, nil
}

// derivesOf returns the explicit parents of a profile, nil if there are none.
func derivesOf(prof node) []string {
	g, ok := prof["general"].(node)
	if !ok {
		return nil
	}
	switch d := g["derives"].(type) {
	case string:
		return []string{d}
	case []interface{}:
		res := []string{}
		for _, v := range d {
			res = append(res, fmt.Sprint(v))
		}
		return res
	}
	return nil
}

// merge copies src over dst. Maps are merged recursively, everything else
// is replaced.
func merge(dst, src node) node {
	for k, sv := range src {
		sm, sok := sv.(node)
		dm, dok := dst[k].(node)
		switch {
		case sok && dok:
			dst[k] = merge(dm, sm)
		case sok:
			dst[k] = merge(node{}, sm)
		default:
			dst[k] = sv
		}
	}
	return dst
}

func setPath(n node, path []string, v interface{}) {
	for _, k := range path[:len(path)-1] {
		sub, ok := n[k].(node)
		if !ok {
			sub = node{}
			n[k] = sub
		}
		n = sub
	}
	n[path[len(path)-1]] = v
}
