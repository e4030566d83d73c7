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

// Package engine runs trgcopy over a source and destination folder.
//
// A run scans the source folder once, correlates triggers with their
// manifests and payloads, then applies each bound manifest row by row:
//
//	scan ──▶ correlate ──▶ manifest rows ──▶ resolve name ──▶ copy
//	                                              │              │
//	                                              ▼              ▼
//	                                          exists        <payload>.err
//
// Triggers whose payloads could land on the same destination name run one
// after another in base-name order; all other triggers may run concurrently.
package engine

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/trgcopy/pkg/correlate"
	"github.com/walteh/trgcopy/pkg/manifest"
	"github.com/walteh/trgcopy/pkg/metrics"
	"github.com/walteh/trgcopy/pkg/revision"
	"github.com/walteh/trgcopy/pkg/scan"
	"github.com/walteh/trgcopy/pkg/transfer"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDestinationFolderMissing = errors.Base("destination folder does not exist")
	ErrManifestUnreadable       = errors.Base("manifest unreadable")
)

// 🔧 Options configures an Engine. Defaulting happens in the config package;
// zero values here fall back to the most literal behaviour.
type Options struct {
	// Fs is the filesystem both folders live on. Defaults to the OS filesystem.
	Fs afero.Fs

	SourceFolder      string
	DestinationFolder string

	// MaxRevisions bounds the revision search; zero or less is unbounded.
	MaxRevisions int
	// BufferSize is the copy buffer size in bytes.
	BufferSize int
	// Concurrency is the number of triggers processed at once; below 2 runs sequentially.
	Concurrency int
	// Ignore holds doublestar patterns for source names to leave alone.
	Ignore []string
	// Lock takes a lock on the source folder for the duration of the run.
	Lock bool

	Recorder metrics.Recorder
}

// 🏭 Engine runs trigger processing over a source and destination folder.
type Engine struct {
	opts     Options
	fs       afero.Fs
	recorder metrics.Recorder
	resolver *revision.Resolver
	copier   *transfer.Copier
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.SourceFolder == "" {
		return nil, errors.Errorf("source folder is required")
	}
	if opts.DestinationFolder == "" {
		return nil, errors.Errorf("destination folder is required")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}
	opts.Ignore = append(append([]string(nil), opts.Ignore...), LockFileName)

	return &Engine{
		opts:     opts,
		fs:       opts.Fs,
		recorder: opts.Recorder,
		resolver: revision.NewResolver(opts.Fs, opts.MaxRevisions),
		copier:   transfer.NewCopier(opts.Fs, opts.BufferSize, opts.Recorder),
	}, nil
}

func (e *Engine) begin(ctx context.Context, dryRun bool) (context.Context, *Report) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		DryRun:  dryRun,
	}
	logger := zerolog.Ctx(ctx).With().Str("run_id", report.RunID).Logger()
	return logger.WithContext(ctx), report
}

// correlate scans the source folder and pairs triggers with manifests and payloads.
func (e *Engine) correlate(ctx context.Context) (correlate.TriggerSet, error) {
	b, err := scan.Scan(ctx, e.fs, e.opts.SourceFolder, scan.Options{Ignore: e.opts.Ignore})
	if err != nil {
		return nil, err
	}
	return correlate.Correlate(ctx, b), nil
}

// 🔍 Plan scans and correlates without touching any file.
func (e *Engine) Plan(ctx context.Context) (*Report, error) {
	ctx, report := e.begin(ctx, true)

	set, err := e.correlate(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range set.Sorted() {
		report.Triggers = append(report.Triggers, TriggerResult{Match: m})
	}
	report.Duration = time.Since(report.Started)
	return report, nil
}

// 🏃 Run processes every trigger in the source folder.
//
// Only an unreadable or locked source folder fails the run. Every other
// problem is confined to its trigger or row and shows up in the Report.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	ctx, report := e.begin(ctx, false)
	logger := zerolog.Ctx(ctx)

	logger.Info().
		Str("source", e.opts.SourceFolder).
		Str("destination", e.opts.DestinationFolder).
		Msg("started processing files from source folder")

	if info, err := e.fs.Stat(e.opts.SourceFolder); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.Errorf("%s is not a directory", e.opts.SourceFolder)
		}
		return nil, errors.Errorf("%w: %s", scan.ErrSourceUnavailable, err.Error())
	}

	if e.opts.Lock {
		unlock, err := lockSource(ctx, e.fs, e.opts.SourceFolder)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	set, err := e.correlate(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range set.Skipped() {
		logger.Warn().
			Str("trigger", m.Base).
			Str("reason", string(m.Reason)).
			Strs("candidates", m.Candidates).
			Msg("skipping trigger")
		e.recorder.TriggerSkipped(string(m.Reason))
	}

	bound := set.Bound()
	results := make([]TriggerResult, len(bound))

	g, gctx := errgroup.WithContext(ctx)
	limit := e.opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, group := range families(bound) {
		if gctx.Err() != nil {
			break
		}
		group := group
		g.Go(func() error {
			for _, i := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.processTrigger(gctx, bound[i])
				e.recorder.TriggerProcessed()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("processing triggers: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("processing triggers: %w", err)
	}

	report.Triggers = mergeResults(set.Sorted(), results)
	report.Duration = time.Since(report.Started)

	processed, skipped := report.Counts()
	logger.Info().
		Int("processed", processed).
		Int("skipped", skipped).
		Int("failed_copies", report.Failures()).
		Int("aborted_manifests", report.Aborted()).
		Dur("duration", report.Duration).
		Msg("run complete")

	return report, nil
}

// 🧵 families groups bound triggers whose payloads can end up under the same
// destination name, such as a.txt and a(2).txt. A group runs sequentially in
// base-name order; different groups never share a destination name.
func families(bound []correlate.Match) [][]int {
	index := make(map[string]int, len(bound))
	var groups [][]int
	for i, m := range bound {
		key := revision.Family(m.Payload)
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// mergeResults places processed results among the skipped matches in base-name order.
func mergeResults(all []correlate.Match, processed []TriggerResult) []TriggerResult {
	byBase := make(map[string]TriggerResult, len(processed))
	for _, r := range processed {
		byBase[r.Match.Base] = r
	}
	out := make([]TriggerResult, 0, len(all))
	for _, m := range all {
		if r, ok := byBase[m.Base]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, TriggerResult{Match: m})
	}
	return out
}

// 📄 processTrigger applies one trigger's manifest to its payload.
// Rows run in manifest order and the first bad row stops the manifest.
func (e *Engine) processTrigger(ctx context.Context, m correlate.Match) TriggerResult {
	logger := zerolog.Ctx(ctx).With().Str("trigger", m.Base).Str("payload", m.Payload).Logger()
	ctx = logger.WithContext(ctx)

	result := TriggerResult{Match: m}
	manifestPath := filepath.Join(e.opts.SourceFolder, m.Manifest)
	payloadPath := filepath.Join(e.opts.SourceFolder, m.Payload)

	abort := func(err error) TriggerResult {
		logger.Error().Err(err).Str("manifest", manifestPath).Msg("stopped processing manifest")
		e.recorder.ManifestAborted(err)
		result.Aborted = err
		return result
	}

	reader, closer, err := manifest.Open(e.fs, manifestPath)
	if err != nil {
		return abort(errors.Errorf("%w: %s", ErrManifestUnreadable, err.Error()))
	}
	defer closer.Close()

	logger.Info().Str("manifest", manifestPath).Msg("reading manifest")

	headerLogged := false
	for {
		if err := ctx.Err(); err != nil {
			return result
		}

		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if header, ok := reader.Header(); ok && !headerLogged {
			logger.Debug().Str("header", header).Msg("manifest header")
			headerLogged = true
		}
		if err != nil {
			return abort(err)
		}
		logger.Debug().Int("line", row.Line).Str("folder", row.Folder).Bool("create_revision", row.CreateRevision).Msg("manifest row")

		folder := filepath.Join(e.opts.DestinationFolder, row.Folder)
		if info, err := e.fs.Stat(folder); err != nil || !info.IsDir() {
			return abort(errors.Errorf("%w: %s (line %d)", ErrDestinationFolderMissing, folder, row.Line))
		}

		result.Rows = append(result.Rows, e.processRow(ctx, payloadPath, folder, m.Payload, row))
	}

	return result
}

// 🚚 processRow resolves the destination name and copies the payload once.
func (e *Engine) processRow(ctx context.Context, payloadPath, folder, payload string, row manifest.Row) RowResult {
	logger := zerolog.Ctx(ctx)
	res := RowResult{Row: row}

	dest, err := e.resolver.Resolve(ctx, folder, payload, row.CreateRevision)
	res.Destination = dest
	if errors.Is(err, revision.ErrExists) {
		logger.Info().Str("file", dest.Path()).Msg("file already exists in destination folder")
		e.recorder.CopyExists()
		res.Status = RowExists
		return res
	}
	if err != nil {
		return e.fail(ctx, folder, payload, res, err)
	}

	n, err := e.copier.Copy(ctx, payloadPath, dest)
	if err != nil {
		return e.fail(ctx, folder, payload, res, err)
	}

	logger.Info().Str("file", dest.Path()).Int("revision", dest.Revision).Int64("bytes", n).Msg("copied data file")
	e.recorder.CopySucceeded(n, dest.Revision)
	res.Status = RowCopied
	res.Bytes = n
	return res
}

func (e *Engine) fail(ctx context.Context, folder, payload string, res RowResult, err error) RowResult {
	zerolog.Ctx(ctx).Error().Err(err).Str("folder", folder).Msg("processing data file")
	e.copier.RecordFailure(ctx, folder, payload, err)
	e.recorder.CopyFailed(err)
	res.Status = RowFailed
	res.Err = err
	return res
}
