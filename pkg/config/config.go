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
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ⚙️ Defaults applied by Validate
const (
	DefaultMaxRevisions = 10000
	DefaultBufferSize   = 32 * 1024
	DefaultConcurrency  = 1
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Config represents the complete configuration
type Config struct {
	SourceFolder      string   `json:"source_folder" yaml:"source_folder"`
	DestinationFolder string   `json:"destination_folder" yaml:"destination_folder"`
	MaxRevisions      int      `json:"max_revisions,omitempty" yaml:"max_revisions,omitempty"` // negative searches without a bound
	BufferSize        int      `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`
	Concurrency       int      `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Ignore            []string `json:"ignore,omitempty" yaml:"ignore,omitempty"` // doublestar patterns on source file names
	Lock              *bool    `json:"lock,omitempty" yaml:"lock,omitempty"`
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *Config) Validate() error {
	if cfg.SourceFolder == "" {
		return errors.Errorf("source_folder is required")
	}
	if cfg.DestinationFolder == "" {
		return errors.Errorf("destination_folder is required")
	}

	for _, p := range []*string{&cfg.SourceFolder, &cfg.DestinationFolder} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return errors.Errorf("expanding %s: %w", *p, err)
		}
		*p = filepath.Clean(expanded)
	}
	if cfg.SourceFolder == cfg.DestinationFolder {
		return errors.Errorf("source_folder and destination_folder must differ")
	}

	if cfg.BufferSize < 0 {
		return errors.Errorf("buffer_size must not be negative")
	}
	if cfg.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative")
	}
	for _, pattern := range cfg.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	if cfg.MaxRevisions == 0 {
		cfg.MaxRevisions = DefaultMaxRevisions
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Lock == nil {
		lock := true
		cfg.Lock = &lock
	}

	return nil
}

// LockEnabled reports whether the source folder should be locked.
func (cfg *Config) LockEnabled() bool {
	return cfg.Lock == nil || *cfg.Lock
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s -> %s", cfg.SourceFolder, cfg.DestinationFolder)
}
