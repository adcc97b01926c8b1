// Copyright 2026 Paperflow Authors
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


package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestLoadNodeFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	t.Run("valid mapping", func(t *testing.T) {
		files, err := loadNodeFiles([]string{"in-1=" + path})
		require.NoError(t, err)
		require.Contains(t, files, "in-1")
		assert.Equal(t, "notes.txt", files["in-1"].Filename)
		assert.Equal(t, []byte("hello"), files["in-1"].Data)
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := loadNodeFiles([]string{"in-1"})
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadNodeFiles([]string{"in-1=" + filepath.Join(dir, "absent.txt")})
		assert.Error(t, err)
	})

	t.Run("no specs", func(t *testing.T) {
		files, err := loadNodeFiles(nil)
		require.NoError(t, err)
		assert.Nil(t, files)
	})
}

func TestSetupLogger(t *testing.T) {
	newContext := func(level string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		set.String("log-level", level, "")
		return cli.NewContext(nil, set, nil)
	}

	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG"} {
		assert.NoError(t, setupLogger(newContext(level)), level)
	}
	assert.Error(t, setupLogger(newContext("verbose")))
}
