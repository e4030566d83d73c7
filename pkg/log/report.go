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

package log

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/walteh/trgcopy/pkg/correlate"
	"github.com/walteh/trgcopy/pkg/engine"
	"github.com/walteh/trgcopy/pkg/metrics"
)

// 📋 PrintReport renders every trigger of a report followed by a summary table.
func (l *Logger) PrintReport(ctx context.Context, report *engine.Report, snap metrics.Snapshot) error {
	mode := "run"
	if report.DryRun {
		mode = "plan"
	}
	l.Header(fmt.Sprintf("%s %s", mode, report.RunID))

	for _, t := range report.Triggers {
		if !t.Match.IsBound() {
			l.LogSkipped(t.Match)
			continue
		}
		l.StartTrigger(ctx, TriggerOperation{Base: t.Match.Base, Manifest: t.Match.Manifest, Payload: t.Match.Payload})
		for _, row := range t.Rows {
			l.LogFileOperation(ctx, RowOperation(row))
			if row.Err != nil {
				l.zlog.Debug().Err(row.Err).Str("folder", row.Row.Folder).Msg("row failed")
			}
		}
		if t.Aborted != nil {
			l.LogFileOperation(ctx, FileOperation{
				Path:     t.Match.Manifest,
				Kind:     "manifest",
				Status:   "aborted",
				IsFailed: true,
			})
			l.Warningf("%s: %s", t.Match.Manifest, t.Aborted.Error())
		}
		l.EndTrigger(ctx)
	}

	l.LogNewline()
	table, err := pterm.DefaultTable.WithHasHeader().WithData(SummaryTable(report, snap)).Srender()
	if err != nil {
		return err
	}

	l.mu.Lock()
	fmt.Fprintln(l.console, table)
	l.mu.Unlock()

	if report.DryRun {
		processed, skipped := report.Counts()
		l.Infof("%d triggers would be processed, %d skipped", processed, skipped)
		return nil
	}
	if f := report.Failures(); f > 0 {
		l.Errorf("%d copies failed", f)
	} else {
		l.Successf("done in %s", report.Duration.Round(time.Millisecond))
	}
	return nil
}

// LogSkipped prints a trigger that was not processed.
func (l *Logger) LogSkipped(m correlate.Match) {
	reason := string(m.Reason)
	if m.Reason == correlate.PayloadAmbiguous && len(m.Candidates) > 0 {
		reason = fmt.Sprintf("%s (%s)", reason, strings.Join(m.Candidates, ", "))
	}
	l.Warningf("%s skipped: %s", m.Base, reason)
}

// SummaryTable builds the rows of the summary table.
func SummaryTable(report *engine.Report, snap metrics.Snapshot) pterm.TableData {
	processed, skipped := report.Counts()
	itoa := func(n int64) string { return strconv.FormatInt(n, 10) }

	data := pterm.TableData{
		{"metric", "value"},
		{"triggers processed", strconv.Itoa(processed)},
		{"triggers skipped", strconv.Itoa(skipped)},
		{"manifests aborted", strconv.Itoa(report.Aborted())},
		{"copied", itoa(snap.Copied)},
		{"revisions", itoa(snap.Revisions)},
		{"already existing", itoa(snap.AlreadyExisting)},
		{"failed", itoa(snap.Failed)},
		{"bytes copied", itoa(snap.BytesCopied)},
	}
	if snap.SizeMax > 0 {
		data = append(data,
			[]string{"size p50", itoa(snap.SizeP50)},
			[]string{"size p99", itoa(snap.SizeP99)},
			[]string{"size max", itoa(snap.SizeMax)},
		)
	}
	if n := len(snap.ErrorSinkFailures); n > 0 {
		data = append(data, []string{"error marker failures", strconv.Itoa(n)})
	}
	return data
}
