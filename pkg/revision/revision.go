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

// Package revision picks the destination file name for a payload copy.
package revision

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/trgcopy/pkg/names"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrExists means overwriting was refused because the name is taken.
	ErrExists = errors.Base("destination file already exists")
	// ErrRevisionLimitExceeded means every revision up to the limit is taken.
	ErrRevisionLimitExceeded = errors.Base("revision limit exceeded")
)

// 🎯 Destination is a resolved copy target.
type Destination struct {
	Folder   string
	Name     string
	Revision int // 1 for the bare name
}

// Path returns the full destination path.
func (d Destination) Path() string {
	return filepath.Join(d.Folder, d.Name)
}

// Candidate returns the file name for a revision: the bare name for
// revision 1, then base(2)ext, base(3)ext and so on.
func Candidate(payload string, revision int) string {
	base, ext := names.Split(payload)
	if revision <= 1 {
		return base + ext
	}
	return base + "(" + strconv.Itoa(revision) + ")" + ext
}

// 🧬 Family returns payload with every trailing "(n)" revision suffix removed
// from its base name. Every name Candidate produces for a payload has the
// payload's family, so payloads of different families never compete for a
// destination name.
func Family(payload string) string {
	base, ext := names.Split(payload)
	for {
		trimmed, ok := trimRevision(base)
		if !ok {
			return base + ext
		}
		base = trimmed
	}
}

func trimRevision(base string) (string, bool) {
	if !strings.HasSuffix(base, ")") {
		return base, false
	}
	open := strings.LastIndexByte(base, '(')
	if open < 0 {
		return base, false
	}
	digits := base[open+1 : len(base)-1]
	if digits == "" {
		return base, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return base, false
		}
	}
	return base[:open], true
}

// 🔢 Resolver finds free names in destination folders.
type Resolver struct {
	fs afero.Fs

	// MaxRevisions bounds the revision search. Zero or less searches without a bound.
	MaxRevisions int
}

// NewResolver returns a Resolver over fs.
func NewResolver(fs afero.Fs, maxRevisions int) *Resolver {
	return &Resolver{fs: fs, MaxRevisions: maxRevisions}
}

// Resolve picks the name payload is copied to inside folder.
//
// Without createRevision the bare name is used and ErrExists is returned when
// it is already taken. With createRevision the first free revision is used.
func (r *Resolver) Resolve(ctx context.Context, folder, payload string, createRevision bool) (Destination, error) {
	logger := zerolog.Ctx(ctx)

	if !createRevision {
		dest := Destination{Folder: folder, Name: Candidate(payload, 1), Revision: 1}
		taken, err := r.exists(dest.Path())
		if err != nil {
			return Destination{}, err
		}
		if taken {
			return dest, errors.Errorf("%w: %s", ErrExists, dest.Path())
		}
		return dest, nil
	}

	for rev := 1; r.MaxRevisions <= 0 || rev <= r.MaxRevisions; rev++ {
		if err := ctx.Err(); err != nil {
			return Destination{}, errors.Errorf("resolving revision: %w", err)
		}

		dest := Destination{Folder: folder, Name: Candidate(payload, rev), Revision: rev}
		taken, err := r.exists(dest.Path())
		if err != nil {
			return Destination{}, err
		}
		if !taken {
			logger.Debug().Str("name", dest.Name).Int("revision", rev).Msg("resolved revision")
			return dest, nil
		}
	}

	return Destination{}, errors.Errorf("%w: %s has %d revisions of %s", ErrRevisionLimitExceeded, folder, r.MaxRevisions, payload)
}

func (r *Resolver) exists(path string) (bool, error) {
	_, err := r.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking %s: %w", path, err)
}
