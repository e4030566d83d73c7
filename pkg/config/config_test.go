// Copyright 2025 walteh LLC
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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "yaml_full",
			file: "trgcopy.yaml",
			config: `
source_folder: /data/inbox
destination_folder: /data/outbox/
max_revisions: 50
buffer_size: 4096
concurrency: 4
ignore:
  - "*.tmp"
  - ".*"
lock: false
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/inbox", cfg.SourceFolder)
				assert.Equal(t, "/data/outbox", cfg.DestinationFolder, "path should be cleaned")
				assert.Equal(t, 50, cfg.MaxRevisions)
				assert.Equal(t, 4096, cfg.BufferSize)
				assert.Equal(t, 4, cfg.Concurrency)
				assert.Equal(t, []string{"*.tmp", ".*"}, cfg.Ignore)
				assert.False(t, cfg.LockEnabled())
			},
		},
		{
			name: "yaml_minimal_gets_defaults",
			file: "trgcopy.yml",
			config: `
source_folder: /data/inbox
destination_folder: /data/outbox
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultMaxRevisions, cfg.MaxRevisions)
				assert.Equal(t, DefaultBufferSize, cfg.BufferSize)
				assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
				assert.True(t, cfg.LockEnabled())
			},
		},
		{
			name: "yaml_unknown_field",
			file: "trgcopy.yaml",
			config: `
source_folder: /data/inbox
destination_folder: /data/outbox
watch: true
`,
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:   "json",
			file:   "trgcopy.json",
			config: `{"source_folder": "/in", "destination_folder": "/out", "max_revisions": -1}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/in", cfg.SourceFolder)
				assert.Equal(t, "/out", cfg.DestinationFolder)
				assert.Equal(t, -1, cfg.MaxRevisions, "negative keeps the search unbounded")
			},
		},
		{
			name:        "json_unknown_field",
			file:        "trgcopy.json",
			config:      `{"source_folder": "/in", "destination_folder": "/out", "recursive": true}`,
			wantErr:     true,
			errContains: "parsing JSON",
		},
		{
			name: "hcl",
			file: "trgcopy.hcl",
			config: `
source_folder      = "${env.TRGCOPY_TEST_ROOT}/inbox"
destination_folder = "/out"
concurrency        = 2
ignore             = ["*.part"]
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/inbox", cfg.SourceFolder)
				assert.Equal(t, "/out", cfg.DestinationFolder)
				assert.Equal(t, 2, cfg.Concurrency)
				assert.Equal(t, DefaultMaxRevisions, cfg.MaxRevisions)
				assert.Equal(t, []string{"*.part"}, cfg.Ignore)
			},
		},
		{
			name:        "hcl_missing_required",
			file:        "trgcopy.hcl",
			config:      `source_folder = "/in"`,
			wantErr:     true,
			errContains: "decoding HCL",
		},
		{
			name:        "unsupported_extension",
			file:        "trgcopy.toml",
			config:      `source_folder = "/in"`,
			wantErr:     true,
			errContains: "no parser found",
		},
	}

	t.Setenv("TRGCOPY_TEST_ROOT", "/srv")
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(configPath, []byte(tt.config), 0644), "writing config file should succeed")

			cfg, err := Load(ctx, configPath)
			if err == nil {
				err = cfg.Validate()
			}
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{name: "missing_source", cfg: Config{DestinationFolder: "/out"}, errContains: "source_folder is required"},
		{name: "missing_destination", cfg: Config{SourceFolder: "/in"}, errContains: "destination_folder is required"},
		{name: "same_folder", cfg: Config{SourceFolder: "/data/", DestinationFolder: "/data"}, errContains: "must differ"},
		{name: "negative_buffer", cfg: Config{SourceFolder: "/in", DestinationFolder: "/out", BufferSize: -1}, errContains: "buffer_size"},
		{name: "negative_concurrency", cfg: Config{SourceFolder: "/in", DestinationFolder: "/out", Concurrency: -2}, errContains: "concurrency"},
		{name: "bad_pattern", cfg: Config{SourceFolder: "/in", DestinationFolder: "/out", Ignore: []string{"[abc"}}, errContains: "invalid ignore pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidateExpandsHome(t *testing.T) {
	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()
	t.Setenv("HOME", "/home/ops")

	cfg := &Config{SourceFolder: "~/inbox/", DestinationFolder: "~/outbox"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/home/ops/inbox", cfg.SourceFolder)
	assert.Equal(t, "/home/ops/outbox", cfg.DestinationFolder)
	assert.Equal(t, DefaultMaxRevisions, cfg.MaxRevisions)
	assert.True(t, cfg.LockEnabled())
}

func TestConfigString(t *testing.T) {
	cfg := &Config{SourceFolder: "/in", DestinationFolder: "/out"}
	assert.Equal(t, "/in -> /out", cfg.String())
}

func TestGetParser(t *testing.T) {
	assert.IsType(t, &YAMLParser{}, GetParser("a.yaml"))
	assert.IsType(t, &YAMLParser{}, GetParser("A.YML"))
	assert.IsType(t, &JSONParser{}, GetParser("a.json"))
	assert.IsType(t, &HCLParser{}, GetParser("a.hcl"))
	assert.Nil(t, GetParser("a.toml"))
}
