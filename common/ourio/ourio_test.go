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
package ourio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileIfDifferent(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "out", "layout.txt")

	written, err := WriteFileIfDifferent(fn, []byte("abc"), 0644)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = WriteFileIfDifferent(fn, []byte("abc"), 0644)
	require.NoError(t, err)
	assert.False(t, written)

	written, err = WriteFileIfDifferent(fn, []byte("abd"), 0644)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "abd", string(data))
}

func TestWriteYAMLFileIfDifferent(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "doc.yaml")
	doc := struct {
		Name string `yaml:"name"`
		Size int    `yaml:"size"`
	}{"main", 4096}

	written, err := WriteYAMLFileIfDifferent(fn, doc, 0644)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "name: main\nsize: 4096\n", string(data))
}
