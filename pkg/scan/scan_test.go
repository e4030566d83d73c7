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

package scan_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/trgcopy/pkg/scan"
	"gitlab.com/tozd/go/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		opts    scan.Options
		want    *scan.Bucket
	}{
		{
			name:    "all_kinds",
			entries: []string{"report.txt", "report.trg", "report.csv", "report.err", "notes"},
			want: &scan.Bucket{
				Triggers:     []string{"report.trg"},
				Manifests:    []string{"report.csv"},
				ErrorMarkers: []string{"report.err"},
				Payloads:     []string{"notes", "report.txt"},
			},
		},
		{
			name:    "extension_is_case_sensitive",
			entries: []string{"a.TRG", "a.Csv"},
			want: &scan.Bucket{
				Payloads: []string{"a.Csv", "a.TRG"},
			},
		},
		{
			name:    "only_last_extension_counts",
			entries: []string{"a.trg.txt", "b.txt.trg"},
			want: &scan.Bucket{
				Triggers: []string{"b.txt.trg"},
				Payloads: []string{"a.trg.txt"},
			},
		},
		{
			name:    "ignore_patterns",
			entries: []string{"a.txt", ".a.txt.swp", "b.tmp", "a.trg"},
			opts:    scan.Options{Ignore: []string{".*", "*.tmp"}},
			want: &scan.Bucket{
				Triggers: []string{"a.trg"},
				Payloads: []string{"a.txt"},
				Ignored:  []string{".a.txt.swp", "b.tmp"},
			},
		},
		{
			name:    "empty",
			entries: nil,
			want:    &scan.Bucket{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scan.Classify(tt.entries, tt.opts)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.entries)-len(got.Ignored), got.Total())
		})
	}
}

func TestScan(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	fs := afero.NewMemMapFs()
	for _, name := range []string{"/src/a.trg", "/src/a.csv", "/src/a.bin"} {
		require.NoError(t, afero.WriteFile(fs, name, nil, 0644))
	}
	require.NoError(t, fs.MkdirAll("/src/nested.trg", 0755))

	b, err := scan.Scan(ctx, fs, "/src", scan.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.trg"}, b.Triggers)
	assert.Equal(t, []string{"a.csv"}, b.Manifests)
	assert.Equal(t, []string{"a.bin"}, b.Payloads)
	assert.Empty(t, b.ErrorMarkers)
}

func TestScanSourceUnavailable(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/file", []byte("x"), 0644))

	for _, dir := range []string{"/missing", "/file"} {
		t.Run(dir, func(t *testing.T) {
			_, err := scan.Scan(ctx, fs, dir, scan.Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, scan.ErrSourceUnavailable))
		})
	}
}
