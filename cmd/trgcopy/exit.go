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
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/trgcopy/pkg/engine"
	"github.com/walteh/trgcopy/pkg/scan"
)

// 🚦 Process exit codes
const (
	ExitOK       = 0 // run completed, per-file failures included unless --strict
	ExitUsage    = 1 // bad flags, bad config, anything unclassified
	ExitSource   = 2 // source folder unavailable or locked
	ExitFailures = 3 // --strict and at least one copy failed or manifest aborted
)

// ErrRunFailures is returned by a strict run that recorded failures.
var ErrRunFailures = errors.Base("run completed with failures")

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, scan.ErrSourceUnavailable), errors.Is(err, engine.ErrSourceLocked):
		return ExitSource
	case errors.Is(err, ErrRunFailures):
		return ExitFailures
	default:
		return ExitUsage
	}
}
