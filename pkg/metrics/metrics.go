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

// Package metrics counts what a run did. The engine reports every event to a
// Recorder; Collector keeps the counts in memory for the run summary.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// 📈 Recorder receives run events.
type Recorder interface {
	TriggerProcessed()
	TriggerSkipped(reason string)
	ManifestAborted(err error)
	CopySucceeded(bytes int64, revision int)
	CopyExists()
	CopyFailed(err error)
	// ErrorSinkFailed reports that an error marker could not be written.
	ErrorSinkFailed(path string, err error)
}

// Nop discards every event.
type Nop struct{}

func (Nop) TriggerProcessed()             {}
func (Nop) TriggerSkipped(string)         {}
func (Nop) ManifestAborted(error)         {}
func (Nop) CopySucceeded(int64, int)      {}
func (Nop) CopyExists()                   {}
func (Nop) CopyFailed(error)              {}
func (Nop) ErrorSinkFailed(string, error) {}

const maxTrackedSize = 1 << 40

// 📊 Collector is a Recorder safe for concurrent use.
type Collector struct {
	processed       atomic.Int64
	skipped         atomic.Int64
	manifestAborted atomic.Int64
	copied          atomic.Int64
	revised         atomic.Int64
	exists          atomic.Int64
	failed          atomic.Int64
	sinkFailed      atomic.Int64
	bytes           atomic.Int64

	mu          sync.Mutex
	sizes       *hdrhistogram.Histogram
	skipReasons map[string]int64
	sinkErrors  []SinkFailure
}

// SinkFailure is an error marker that could not be written.
type SinkFailure struct {
	Path  string
	Error string
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		sizes:       hdrhistogram.New(1, maxTrackedSize, 3),
		skipReasons: make(map[string]int64),
	}
}

func (c *Collector) TriggerProcessed() { c.processed.Add(1) }

func (c *Collector) TriggerSkipped(reason string) {
	c.skipped.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipReasons[reason]++
}

func (c *Collector) ManifestAborted(error) { c.manifestAborted.Add(1) }

func (c *Collector) CopySucceeded(bytes int64, revision int) {
	c.copied.Add(1)
	c.bytes.Add(bytes)
	if revision > 1 {
		c.revised.Add(1)
	}

	v := bytes
	switch {
	case v < 1:
		v = 1
	case v > maxTrackedSize:
		v = maxTrackedSize
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.sizes.RecordValue(v)
}

func (c *Collector) CopyExists() { c.exists.Add(1) }

func (c *Collector) CopyFailed(error) { c.failed.Add(1) }

func (c *Collector) ErrorSinkFailed(path string, err error) {
	c.sinkFailed.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinkErrors = append(c.sinkErrors, SinkFailure{Path: path, Error: err.Error()})
}

// Snapshot is a point-in-time copy of a Collector.
type Snapshot struct {
	TriggersProcessed int64
	TriggersSkipped   int64
	SkipReasons       map[string]int64
	ManifestsAborted  int64
	Copied            int64
	Revisions         int64
	AlreadyExisting   int64
	Failed            int64
	ErrorSinkFailures []SinkFailure
	BytesCopied       int64
	SizeP50           int64
	SizeP99           int64
	SizeMax           int64
}

// Snapshot returns the current counts.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	reasons := make(map[string]int64, len(c.skipReasons))
	for k, v := range c.skipReasons {
		reasons[k] = v
	}

	s := Snapshot{
		TriggersProcessed: c.processed.Load(),
		TriggersSkipped:   c.skipped.Load(),
		SkipReasons:       reasons,
		ManifestsAborted:  c.manifestAborted.Load(),
		Copied:            c.copied.Load(),
		Revisions:         c.revised.Load(),
		AlreadyExisting:   c.exists.Load(),
		Failed:            c.failed.Load(),
		ErrorSinkFailures: append([]SinkFailure(nil), c.sinkErrors...),
		BytesCopied:       c.bytes.Load(),
	}
	if c.sizes.TotalCount() > 0 {
		s.SizeP50 = c.sizes.ValueAtQuantile(50)
		s.SizeP99 = c.sizes.ValueAtQuantile(99)
		s.SizeMax = c.sizes.Max()
	}
	return s
}
