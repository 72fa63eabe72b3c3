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
package layout

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/mongoose-os/rover/common/ourio"
)

type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatSVG  Format = "svg"
)

// FormatForPath picks the output format from the file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return FormatSVG
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatText
}

func (d *Document) Encode(f Format) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	switch f {
	case FormatText:
		err = d.WriteText(buf)
	case FormatYAML:
		err = d.WriteYAML(buf)
	case FormatSVG:
		err = d.WriteSVG(buf)
	default:
		err = errors.NotValidf("layout format %q", f)
	}
	return buf.Bytes(), err
}

// Save writes the document to path in the format implied by its extension.
// An existing file with the same contents is left alone.
func (d *Document) Save(path string) error {
	f := FormatForPath(path)
	if f == FormatYAML {
		_, err := ourio.WriteYAMLFileIfDifferent(path, d.toYAML(), 0644)
		return errors.Annotatef(err, "failed to save flash layout")
	}
	data, err := d.Encode(f)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = ourio.WriteFileIfDifferent(path, data, 0644)
	return errors.Annotatef(err, "failed to save flash layout")
}

func regionName(r Region) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("0x%08x", r.Start)
}

func (d *Document) WriteText(w io.Writer) error {
	var err error
	p := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	p("%d erases, %d writes, %d image bytes\n", d.Erases, d.Writes, d.ImageBytes)
	for _, r := range d.Regions {
		p("\n%s 0x%08x-0x%08x (page %d, erase unit %d)\n", regionName(r), r.Start, r.End, r.PageSize, r.EraseUnit)
		for _, s := range r.Spans {
			p("  0x%08x-0x%08x  %-9s  %d\n", s.Start, s.End, s.Label, s.Len())
		}
	}
	return errors.Trace(err)
}

type yamlSpan struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Label Label  `yaml:"label"`
	Size  uint64 `yaml:"size"`
}

type yamlRegion struct {
	Name      string     `yaml:"name"`
	Start     string     `yaml:"start"`
	End       string     `yaml:"end"`
	PageSize  uint32     `yaml:"page_size"`
	EraseUnit uint32     `yaml:"erase_unit"`
	Spans     []yamlSpan `yaml:"spans"`
}

type yamlDoc struct {
	Erases     int          `yaml:"erases"`
	Writes     int          `yaml:"writes"`
	ImageBytes uint64       `yaml:"image_bytes"`
	Regions    []yamlRegion `yaml:"regions"`
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%08x", v)
}

func (d *Document) toYAML() *yamlDoc {
	yd := &yamlDoc{Erases: d.Erases, Writes: d.Writes, ImageBytes: d.ImageBytes}
	for _, r := range d.Regions {
		yr := yamlRegion{Name: regionName(r), Start: hex(r.Start), End: hex(r.End), PageSize: r.PageSize, EraseUnit: r.EraseUnit}
		for _, s := range r.Spans {
			yr.Spans = append(yr.Spans, yamlSpan{Start: hex(s.Start), End: hex(s.End), Label: s.Label, Size: s.Len()})
		}
		yd.Regions = append(yd.Regions, yr)
	}
	return yd
}

func (d *Document) WriteYAML(w io.Writer) error {
	data, err := yaml.Marshal(d.toYAML())
	if err != nil {
		return errors.Trace(err)
	}
	_, err = w.Write(data)
	return errors.Trace(err)
}

const (
	svgWidth     = 800
	svgMargin    = 10
	svgRowHeight = 60
	svgBarHeight = 24
)

var svgColors = map[Label]string{
	Written:   "#4caf50",
	Erased:    "#ffc107",
	Untouched: "#e0e0e0",
}

// WriteSVG draws one bar per region, spans scaled to the region size.
// Spans too small to see are drawn one pixel wide.
func (d *Document) WriteSVG(w io.Writer) error {
	buf := bytes.NewBuffer(nil)
	height := svgMargin*2 + svgRowHeight*len(d.Regions)
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" font-family="monospace" font-size="12">`+"\n",
		svgWidth+2*svgMargin, height)
	for i, r := range d.Regions {
		y := svgMargin + i*svgRowHeight
		fmt.Fprintf(buf, `  <text x="%d" y="%d">%s 0x%08x-0x%08x</text>`+"\n",
			svgMargin, y+12, html.EscapeString(regionName(r)), r.Start, r.End)
		size := float64(r.End - r.Start)
		for _, s := range r.Spans {
			x := float64(svgMargin) + float64(s.Start-r.Start)/size*svgWidth
			sw := float64(s.Len()) / size * svgWidth
			if sw < 1 {
				sw = 1
			}
			fmt.Fprintf(buf, `  <rect x="%.2f" y="%d" width="%.2f" height="%d" fill="%s"><title>%s 0x%08x-0x%08x</title></rect>`+"\n",
				x, y+18, sw, svgBarHeight, svgColors[s.Label], s.Label, s.Start, s.End)
		}
	}
	buf.WriteString("</svg>\n")
	_, err := w.Write(buf.Bytes())
	return errors.Trace(err)
}
