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

package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/trgcopy/pkg/config"
	"github.com/walteh/trgcopy/pkg/engine"
	"github.com/walteh/trgcopy/pkg/log"
	"github.com/walteh/trgcopy/pkg/metrics"
)

func engineOptions(cfg *config.Config, recorder metrics.Recorder) engine.Options {
	return engine.Options{
		SourceFolder:      cfg.SourceFolder,
		DestinationFolder: cfg.DestinationFolder,
		MaxRevisions:      cfg.MaxRevisions,
		BufferSize:        cfg.BufferSize,
		Concurrency:       cfg.Concurrency,
		Ignore:            cfg.Ignore,
		Lock:              cfg.LockEnabled(),
		Recorder:          recorder,
	}
}

func newRunCommand(h *Handler) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process every trigger in the source folder",
		Long: `Run processes every trigger found in the source folder.
For each manifest row the payload is copied into the listed folder,
either under its own name or, when the row asks for it, under the
first free revision name. Failures are appended to <payload>.err
in the destination folder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "run").Logger().WithContext(ctx)

			cfg, err := h.loadConfig(ctx, cmd)
			if err != nil {
				return err
			}

			collector := metrics.NewCollector()
			eng, err := engine.New(engineOptions(cfg, collector))
			if err != nil {
				return errors.Errorf("creating engine: %w", err)
			}

			report, err := eng.Run(ctx)
			if err != nil {
				return errors.Errorf("running: %w", err)
			}

			console := log.New(h.stdout, *zerolog.Ctx(ctx))
			if err := console.PrintReport(ctx, report, collector.Snapshot()); err != nil {
				return errors.Errorf("printing report: %w", err)
			}

			if h.strict && (report.Failures() > 0 || report.Aborted() > 0) {
				return errors.Errorf("%w: %d failed copies, %d aborted manifests", ErrRunFailures, report.Failures(), report.Aborted())
			}
			return nil
		},
	}
}

func newPlanCommand(h *Handler) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show which triggers would be processed, touching nothing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "plan").Logger().WithContext(ctx)

			cfg, err := h.loadConfig(ctx, cmd)
			if err != nil {
				return err
			}

			eng, err := engine.New(engineOptions(cfg, nil))
			if err != nil {
				return errors.Errorf("creating engine: %w", err)
			}

			report, err := eng.Plan(ctx)
			if err != nil {
				return errors.Errorf("planning: %w", err)
			}

			console := log.New(h.stdout, *zerolog.Ctx(ctx))
			if err := console.PrintReport(ctx, report, metrics.Snapshot{}); err != nil {
				return errors.Errorf("printing report: %w", err)
			}
			return nil
		},
	}
}
