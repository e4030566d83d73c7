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
	"time"

	"github.com/walteh/trgcopy/pkg/correlate"
	"github.com/walteh/trgcopy/pkg/manifest"
	"github.com/walteh/trgcopy/pkg/revision"
)

// 📊 RowStatus is the outcome of one manifest row.
type RowStatus int

const (
	RowCopied RowStatus = iota // payload written
	RowExists                  // overwrite refused, nothing written
	RowFailed                  // failure recorded in the error marker
)

// String returns a string representation of RowStatus
func (s RowStatus) String() string {
	switch s {
	case RowCopied:
		return "copied"
	case RowExists:
		return "exists"
	case RowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RowResult is what happened to one manifest row.
type RowResult struct {
	Row         manifest.Row
	Destination revision.Destination
	Status      RowStatus
	Bytes       int64
	Err         error
}

// TriggerResult is what happened to one trigger.
type TriggerResult struct {
	Match correlate.Match
	Rows  []RowResult

	// Aborted is set when the manifest stopped early; rows before it were processed.
	Aborted error
}

// 📋 Report summarises a run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	DryRun   bool

	// Triggers holds every trigger, processed ones and skipped ones, ordered by base name.
	Triggers []TriggerResult
}

// Counts returns the number of processed and skipped triggers.
func (r *Report) Counts() (processed, skipped int) {
	for _, t := range r.Triggers {
		if t.Match.IsBound() {
			processed++
		} else {
			skipped++
		}
	}
	return processed, skipped
}

// Failures returns the number of rows whose copy failed.
func (r *Report) Failures() int {
	n := 0
	for _, t := range r.Triggers {
		for _, row := range t.Rows {
			if row.Status == RowFailed {
				n++
			}
		}
	}
	return n
}

// Aborted returns the number of manifests that stopped early.
func (r *Report) Aborted() int {
	n := 0
	for _, t := range r.Triggers {
		if t.Aborted != nil {
			n++
		}
	}
	return n
}
