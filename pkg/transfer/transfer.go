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

// Package transfer copies payloads into destination folders and records
// copy failures in error marker files next to them.
package transfer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/trgcopy/pkg/metrics"
	"github.com/walteh/trgcopy/pkg/names"
	"github.com/walteh/trgcopy/pkg/revision"
	"gitlab.com/tozd/go/errors"
)

// DefaultBufferSize is the copy buffer used when none is configured.
const DefaultBufferSize = 32 * 1024

// ErrCopyFailed wraps every copy failure.
var ErrCopyFailed = errors.Base("copy failed")

// 📦 Copier streams payloads to their resolved destinations.
type Copier struct {
	fs         afero.Fs
	bufferSize int
	recorder   metrics.Recorder
}

// NewCopier returns a Copier. A non-positive bufferSize uses DefaultBufferSize
// and a nil recorder discards events.
func NewCopier(fs afero.Fs, bufferSize int, recorder metrics.Recorder) *Copier {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Copier{fs: fs, bufferSize: bufferSize, recorder: recorder}
}

// 🚚 Copy streams src into dest and returns the number of bytes written.
//
// Bytes go to a hidden temp file in the destination folder that is renamed
// to the final name only once the copy completed, so a failed copy never
// leaves a file under the final name.
func (c *Copier) Copy(ctx context.Context, src string, dest revision.Destination) (n int64, err error) {
	in, err := c.fs.Open(src)
	if err != nil {
		return 0, errors.Errorf("%w: opening source: %s", ErrCopyFailed, err.Error())
	}
	defer in.Close()

	tmp, err := afero.TempFile(c.fs, dest.Folder, "."+dest.Name+".*.part")
	if err != nil {
		return 0, errors.Errorf("%w: creating temp file: %s", ErrCopyFailed, err.Error())
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			if rerr := c.fs.Remove(tmpName); rerr != nil && !os.IsNotExist(rerr) {
				zerolog.Ctx(ctx).Warn().Err(rerr).Str("temp", tmpName).Msg("removing temp file")
			}
		}
	}()

	buf := make([]byte, c.bufferSize)
	n, err = io.CopyBuffer(tmp, &contextReader{ctx: ctx, r: in}, buf)
	if err != nil {
		return n, errors.Errorf("%w: copying %s: %s", ErrCopyFailed, filepath.Base(src), err.Error())
	}
	if err = tmp.Close(); err != nil {
		return n, errors.Errorf("%w: closing temp file: %s", ErrCopyFailed, err.Error())
	}
	if err = c.fs.Rename(tmpName, dest.Path()); err != nil {
		return n, errors.Errorf("%w: renaming temp file: %s", ErrCopyFailed, err.Error())
	}
	return n, nil
}

// 📝 RecordFailure appends cause as one line to the payload's error marker
// in folder. A failure to write the marker is logged and reported to the
// recorder, never returned.
func (c *Copier) RecordFailure(ctx context.Context, folder, payload string, cause error) {
	logger := zerolog.Ctx(ctx)
	path := filepath.Join(folder, names.ErrorMarker(payload))

	if err := c.appendLine(path, cause.Error()); err != nil {
		logger.Error().Err(err).Str("error_file", path).Msg("writing error file")
		c.recorder.ErrorSinkFailed(path, err)
		return
	}
	logger.Debug().Str("error_file", path).Msg("recorded copy failure")
}

func (c *Copier) appendLine(path, msg string) error {
	f, err := c.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Errorf("opening error file: %w", err)
	}
	defer f.Close()

	line := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(msg) + "\n"
	if _, err := f.Write([]byte(line)); err != nil {
		return errors.Errorf("writing error file: %w", err)
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("closing error file: %w", err)
	}
	return nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
