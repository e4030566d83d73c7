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
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/trgcopy/pkg/config"
)

// 🎛️ Handler holds the flag values shared by every command
type Handler struct {
	configFile   string
	source       string
	destination  string
	maxRevisions int
	bufferSize   int
	concurrency  int
	ignore       []string
	noLock       bool
	debug        bool
	logFormat    string
	strict       bool

	stdout io.Writer
	stderr io.Writer
}

// NewCommand builds the root command.
func NewCommand(stdout, stderr io.Writer) *cobra.Command {
	h := &Handler{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "trgcopy",
		Short: "Copy payloads into destination folders when their trigger arrives",
		Long: `trgcopy scans a source folder for trigger files (<name>.trg).
Each trigger with a manifest (<name>.csv) and exactly one payload
(<name>.<ext>) has its payload copied into every destination
sub-folder the manifest lists.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if h.logFormat != "console" && h.logFormat != "json" {
				return errors.Errorf("unknown log format %q", h.logFormat)
			}
			cmd.SetContext(h.setupLogging(cmd.Context()))
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	h.addRootFlags(cmd)

	cmd.AddCommand(newRunCommand(h))
	cmd.AddCommand(newPlanCommand(h))
	cmd.AddCommand(newVersionCommand(h))

	return cmd
}

// addRootFlags adds shared flags to the root command
func (h *Handler) addRootFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&h.configFile, "config", "c", "", "config file path (.yaml, .yml, .json or .hcl)")
	f.StringVarP(&h.source, "source", "s", "", "source folder holding triggers, manifests and payloads")
	f.StringVarP(&h.destination, "destination", "o", "", "destination root folder")
	f.IntVar(&h.maxRevisions, "max-revisions", 0, "highest revision number tried before giving up (negative for no limit)")
	f.IntVar(&h.bufferSize, "buffer-size", 0, "copy buffer size in bytes")
	f.IntVar(&h.concurrency, "concurrency", 0, "number of triggers processed at once")
	f.StringSliceVar(&h.ignore, "ignore", nil, "glob of source file names to leave alone (repeatable)")
	f.BoolVar(&h.noLock, "no-lock", false, "do not lock the source folder")
	f.BoolVarP(&h.debug, "debug", "d", false, "enable debug logging")
	f.StringVar(&h.logFormat, "log-format", "console", "log format: console or json")
	f.BoolVar(&h.strict, "strict", false, "exit non-zero when any copy failed or manifest was aborted")
}

// setupLogging configures zerolog based on flags
func (h *Handler) setupLogging(ctx context.Context) context.Context {
	level := zerolog.InfoLevel
	if h.debug {
		level = zerolog.DebugLevel
	}

	var out io.Writer = h.stderr
	if h.logFormat == "console" {
		out = zerolog.ConsoleWriter{Out: h.stderr, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger.WithContext(ctx)
}

// 📝 loadConfig reads the config file, if any, and applies flag overrides
func (h *Handler) loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if h.configFile != "" {
		loaded, err := config.Load(ctx, h.configFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceFolder = h.source
	}
	if flags.Changed("destination") {
		cfg.DestinationFolder = h.destination
	}
	if flags.Changed("max-revisions") {
		cfg.MaxRevisions = h.maxRevisions
	}
	if flags.Changed("buffer-size") {
		cfg.BufferSize = h.bufferSize
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = h.concurrency
	}
	if flags.Changed("ignore") {
		cfg.Ignore = append(cfg.Ignore, h.ignore...)
	}
	if flags.Changed("no-lock") {
		lock := !h.noLock
		cfg.Lock = &lock
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid config: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("config", cfg.String()).
		Int("max_revisions", cfg.MaxRevisions).
		Int("buffer_size", cfg.BufferSize).
		Int("concurrency", cfg.Concurrency).
		Strs("ignore", cfg.Ignore).
		Bool("lock", cfg.LockEnabled()).
		Msg("configuration loaded")

	return cfg, nil
}

// 🚀 Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewCommand(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	code := ExitCode(err)
	if err != nil {
		fmt.Fprintf(stderr, "trgcopy: %s\n", err.Error())
	}
	return code
}
