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

package engine

import (
	"context"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// LockFileName is created in the source folder while a run holds it.
const LockFileName = ".trgcopy.lock"

// ErrSourceLocked means another run holds the source folder.
var ErrSourceLocked = errors.Base("source folder is locked by another run")

// 🔒 lockSource takes a non-blocking lock on the source folder. Filesystems
// other than the OS filesystem cannot be locked and get a no-op unlock.
func lockSource(ctx context.Context, fs afero.Fs, dir string) (func(), error) {
	if _, ok := fs.(*afero.OsFs); !ok {
		return func() {}, nil
	}

	logger := zerolog.Ctx(ctx)
	path := filepath.Join(dir, LockFileName)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, errors.Errorf("%w: %s", ErrSourceLocked, path)
	}
	logger.Debug().Str("path", path).Msg("acquired source lock")

	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("releasing source lock")
			return
		}
		logger.Debug().Str("path", path).Msg("released source lock")
	}, nil
}
