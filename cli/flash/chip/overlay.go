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
	"io/ioutil"

	"github.com/juju/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/mongoose-os/rover/common/multierror"
)

// Overlay is a parsed chip description file. It adds variants to a registry
// or replaces existing ones by name.
type Overlay struct {
	Source   string
	Family   string
	Variants []*Descriptor
}

type overlayDoc struct {
	Name     string       `yaml:"name"`
	Variants []variantDoc `yaml:"variants"`
}

type variantDoc struct {
	Name  string      `yaml:"name"`
	Flash []regionDoc `yaml:"flash"`
}

type regionDoc struct {
	Name         string `yaml:"name,omitempty"`
	Start        uint64 `yaml:"start"`
	Length       uint64 `yaml:"length"`
	PageSize     uint32 `yaml:"page_size"`
	EraseUnit    uint32 `yaml:"erase_unit"`
	PartialErase *bool  `yaml:"partial_erase,omitempty"`
	ErasedValue  *uint8 `yaml:"erased_value,omitempty"`
}

func LoadOverlay(path string) (*Overlay, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to read chip description")
	}
	return ParseOverlay(data, path)
}

// ParseOverlay decodes and validates an overlay document. All problems found
// are reported at once.
func ParseOverlay(data []byte, source string) (*Overlay, error) {
	var doc overlayDoc
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, errors.Annotatef(err, "%s: invalid chip description", source)
	}
	o := &Overlay{Source: source, Family: doc.Name}
	var errs error
	if doc.Name == "" {
		errs = multierror.Append(errs, errors.NotValidf("family without a name"))
	}
	seen := map[string]bool{}
	for _, vd := range doc.Variants {
		d := &Descriptor{Name: vd.Name, Family: doc.Name, Source: source}
		for _, rd := range vd.Flash {
			r := Region{
				Name:         rd.Name,
				Start:        rd.Start,
				Length:       rd.Length,
				PageSize:     rd.PageSize,
				EraseUnit:    rd.EraseUnit,
				PartialErase: true,
				ErasedValue:  DefaultErasedValue,
			}
			if rd.PartialErase != nil {
				r.PartialErase = *rd.PartialErase
			}
			if rd.ErasedValue != nil {
				r.ErasedValue = *rd.ErasedValue
			}
			d.Regions = append(d.Regions, r)
		}
		if err := d.Validate(); err != nil {
			errs = multierror.Append(errs, multierror.Errors(err)...)
		}
		key := NormalizeName(d.Name)
		if key != "" && seen[key] {
			errs = multierror.Append(errs, errors.NotValidf("duplicate variant %q", d.Name))
		}
		seen[key] = true
		o.Variants = append(o.Variants, d)
	}
	if errs != nil {
		return nil, errors.Annotatef(errs, "%s", source)
	}
	return o, nil
}
