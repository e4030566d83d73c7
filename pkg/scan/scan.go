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

// Package scan lists a source folder once and sorts every entry into the
// trigger, manifest, error marker or payload bucket by extension.
package scan

import (
	"context"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/trgcopy/pkg/names"
	"gitlab.com/tozd/go/errors"
)

// ErrSourceUnavailable is returned when the source folder cannot be listed.
var ErrSourceUnavailable = errors.Base("source folder unavailable")

// 🗂️ Bucket partitions the names of one folder listing.
// Every classified name is in exactly one of the four buckets.
type Bucket struct {
	Triggers     []string
	Manifests    []string
	ErrorMarkers []string
	Payloads     []string

	// Ignored holds names excluded by an ignore pattern before classification.
	Ignored []string
}

// Options tunes classification.
type Options struct {
	// Ignore is a list of doublestar patterns matched against bare file names.
	Ignore []string
}

// 🔍 Classify buckets names by extension. Priority is trigger, manifest,
// error marker, payload; a name without an extension is a payload.
func Classify(entries []string, opts Options) *Bucket {
	b := &Bucket{}
	for _, name := range entries {
		if ignored(name, opts.Ignore) {
			b.Ignored = append(b.Ignored, name)
			continue
		}
		switch names.Ext(name) {
		case names.TriggerExt:
			b.Triggers = append(b.Triggers, name)
		case names.ManifestExt:
			b.Manifests = append(b.Manifests, name)
		case names.ErrorExt:
			b.ErrorMarkers = append(b.ErrorMarkers, name)
		default:
			b.Payloads = append(b.Payloads, name)
		}
	}

	for _, list := range [][]string{b.Triggers, b.Manifests, b.ErrorMarkers, b.Payloads, b.Ignored} {
		sort.Strings(list)
	}
	return b
}

func ignored(name string, patterns []string) bool {
	for _, pattern := range patterns {
		// patterns are validated by the config loader, a bad one never matches
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// 📂 Scan lists dir (one level, regular files only) and classifies it.
func Scan(ctx context.Context, fs afero.Fs, dir string, opts Options) (*Bucket, error) {
	logger := zerolog.Ctx(ctx)

	info, err := fs.Stat(dir)
	if err != nil {
		return nil, errors.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%w: %s is not a directory", ErrSourceUnavailable, dir)
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errors.Errorf("%w: %s", ErrSourceUnavailable, err.Error())
	}

	list := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			logger.Debug().Str("dir", entry.Name()).Msg("skipping sub-directory")
			continue
		}
		list = append(list, entry.Name())
	}

	b := Classify(list, opts)
	logger.Debug().
		Str("source", dir).
		Int("triggers", len(b.Triggers)).
		Int("manifests", len(b.Manifests)).
		Int("error_markers", len(b.ErrorMarkers)).
		Int("payloads", len(b.Payloads)).
		Int("ignored", len(b.Ignored)).
		Msg("classified source folder")

	return b, nil
}

// Total returns the number of classified names, ignored names excluded.
func (b *Bucket) Total() int {
	return len(b.Triggers) + len(b.Manifests) + len(b.ErrorMarkers) + len(b.Payloads)
}
