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

package transfer_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/trgcopy/pkg/metrics"
	"github.com/walteh/trgcopy/pkg/revision"
	"github.com/walteh/trgcopy/pkg/testutils"
	"github.com/walteh/trgcopy/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

func setupFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/src", 0755))
	require.NoError(t, fs.MkdirAll("/dst/archive", 0755))
	return fs
}

func listDir(t *testing.T, fs afero.Fs, dir string) []string {
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	var out []string
	for _, info := range infos {
		out = append(out, info.Name())
	}
	return out
}

func TestCopy(t *testing.T) {
	ctx := testutils.Context(t)
	fs := setupFs(t)

	// larger than several buffers
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	require.NoError(t, afero.WriteFile(fs, "/src/report.bin", payload, 0644))

	c := transfer.NewCopier(fs, 1024, nil)
	dest := revision.Destination{Folder: "/dst/archive", Name: "report.bin", Revision: 1}

	n, err := c.Copy(ctx, "/src/report.bin", dest)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)

	got, err := afero.ReadFile(fs, "/dst/archive/report.bin")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, []string{"report.bin"}, listDir(t, fs, "/dst/archive"))
}

func TestCopyEmptyFile(t *testing.T) {
	ctx := testutils.Context(t)
	fs := setupFs(t)
	require.NoError(t, afero.WriteFile(fs, "/src/empty.txt", nil, 0644))

	c := transfer.NewCopier(fs, 0, nil)
	n, err := c.Copy(ctx, "/src/empty.txt", revision.Destination{Folder: "/dst/archive", Name: "empty(2).txt"})
	require.NoError(t, err)
	assert.Zero(t, n)

	exists, err := afero.Exists(fs, "/dst/archive/empty(2).txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCopyFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(ffs *testutils.FaultFs)
		want  string
	}{
		{
			name: "source_vanished",
			setup: func(ffs *testutils.FaultFs) {
				require.NoError(t, ffs.Remove("/src/report.txt"))
			},
			want: "opening source",
		},
		{
			name: "read_error",
			setup: func(ffs *testutils.FaultFs) {
				ffs.Fail(testutils.OpRead, "report.txt", errors.New("bad sector"))
			},
			want: "bad sector",
		},
		{
			name: "write_error",
			setup: func(ffs *testutils.FaultFs) {
				ffs.Fail(testutils.OpWrite, "*.part", errors.New("no space left on device"))
			},
			want: "no space left on device",
		},
		{
			name: "create_error",
			setup: func(ffs *testutils.FaultFs) {
				ffs.Fail(testutils.OpCreate, "*.part", errors.New("permission denied"))
			},
			want: "creating temp file",
		},
		{
			name: "rename_error",
			setup: func(ffs *testutils.FaultFs) {
				ffs.Fail(testutils.OpRename, "report.txt", errors.New("cross-device link"))
			},
			want: "renaming temp file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutils.Context(t)
			ffs := testutils.NewFaultFs(setupFs(t))
			require.NoError(t, afero.WriteFile(ffs, "/src/report.txt", []byte("hello"), 0644))
			tt.setup(ffs)

			c := transfer.NewCopier(ffs, 0, nil)
			_, err := c.Copy(ctx, "/src/report.txt", revision.Destination{Folder: "/dst/archive", Name: "report.txt", Revision: 1})
			require.Error(t, err)
			assert.True(t, errors.Is(err, transfer.ErrCopyFailed))
			assert.Contains(t, err.Error(), tt.want)

			// nothing is left under the final name, temp files are cleaned up
			assert.Empty(t, listDir(t, ffs, "/dst/archive"))
		})
	}
}

func TestCopyCancelled(t *testing.T) {
	fs := setupFs(t)
	require.NoError(t, afero.WriteFile(fs, "/src/report.txt", []byte("hello"), 0644))

	ctx, cancel := context.WithCancel(testutils.Context(t))
	cancel()

	_, err := transfer.NewCopier(fs, 0, nil).Copy(ctx, "/src/report.txt", revision.Destination{Folder: "/dst/archive", Name: "report.txt"})
	require.Error(t, err)
	assert.Empty(t, listDir(t, fs, "/dst/archive"))
}

func TestRecordFailure(t *testing.T) {
	ctx := testutils.Context(t)
	fs := setupFs(t)
	rec := metrics.NewCollector()
	c := transfer.NewCopier(fs, 0, rec)

	c.RecordFailure(ctx, "/dst/archive", "report.txt", errors.New("first failure"))
	c.RecordFailure(ctx, "/dst/archive", "report.txt", errors.New("second\nfailure"))

	got, err := afero.ReadFile(fs, "/dst/archive/report.err")
	require.NoError(t, err)
	assert.Equal(t, "first failure\nsecond failure\n", string(got))
	assert.Empty(t, rec.Snapshot().ErrorSinkFailures)
}

func TestRecordFailureSinkError(t *testing.T) {
	ctx := testutils.Context(t)
	ffs := testutils.NewFaultFs(setupFs(t))
	ffs.Fail(testutils.OpCreate, "*.err", errors.New("read-only file system"))

	rec := metrics.NewCollector()
	c := transfer.NewCopier(ffs, 0, rec)

	assert.NotPanics(t, func() {
		c.RecordFailure(ctx, "/dst/archive", "report.txt", errors.New("boom"))
	})

	s := rec.Snapshot()
	require.Len(t, s.ErrorSinkFailures, 1)
	assert.Equal(t, "/dst/archive/report.err", s.ErrorSinkFailures[0].Path)
	assert.True(t, strings.Contains(s.ErrorSinkFailures[0].Error, "read-only file system"))
}
