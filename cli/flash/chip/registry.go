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
	"sort"
	"strings"

	"github.com/golang/glog"
)

// Registry resolves chip names against the built-in table and any number of
// overlays. Each registry owns a private copy of the table, so overlays never
// leak into other registries.
type Registry struct {
	variants []*Descriptor
}

// NewRegistry copies the built-in table and applies the overlays in order.
func NewRegistry(overlays ...*Overlay) *Registry {
	r := &Registry{}
	for _, f := range builtin {
		for _, v := range f.Variants {
			r.variants = append(r.variants, v.Clone())
		}
	}
	for _, o := range overlays {
		r.apply(o)
	}
	return r
}

// apply replaces variants whose normalized name matches one of the overlay's.
func (r *Registry) apply(o *Overlay) {
	replaced := map[string]bool{}
	for _, v := range o.Variants {
		replaced[NormalizeName(v.Name)] = true
	}
	kept := make([]*Descriptor, 0, len(r.variants)+len(o.Variants))
	for _, v := range r.variants {
		if replaced[NormalizeName(v.Name)] {
			glog.V(1).Infof("%s: %s replaces %s from %s", o.Source, v.Name, v.Name, v.Source)
			continue
		}
		kept = append(kept, v)
	}
	for _, v := range o.Variants {
		kept = append(kept, v.Clone())
	}
	r.variants = kept
}

// Resolve looks up a variant by name. Names are compared after
// normalization, so only the case of letters is ignored. Partial names never
// match.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, &NotFoundError{Name: name}
	}
	var matches []*Descriptor
	for _, v := range r.variants {
		if NormalizeName(v.Name) == key {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Name: name}
	case 1:
		glog.V(1).Infof("chip %q resolved to %s (%s)", name, matches[0].Name, matches[0].Source)
		return matches[0].Clone(), nil
	}
	var cands []string
	for _, m := range matches {
		cands = append(cands, m.Name)
	}
	sort.Strings(cands)
	return nil, &AmbiguousError{Name: name, Candidates: cands}
}

// Families lists variants grouped by family, in the order families first appear.
func (r *Registry) Families() []Family {
	var res []Family
	idx := map[string]int{}
	for _, v := range r.variants {
		i, ok := idx[v.Family]
		if !ok {
			i = len(res)
			idx[v.Family] = i
			res = append(res, Family{Name: v.Family})
		}
		res[i].Variants = append(res[i].Variants, v.Clone())
	}
	return res
}

// Search returns the variants whose name contains filter, ignoring case.
func (r *Registry) Search(filter string) []*Descriptor {
	key := NormalizeName(filter)
	var res []*Descriptor
	for _, v := range r.variants {
		if strings.Contains(NormalizeName(v.Name), key) {
			res = append(res, v.Clone())
		}
	}
	return res
}
