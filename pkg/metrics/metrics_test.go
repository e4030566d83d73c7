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

package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/tozd/go/errors"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.TriggerProcessed()
	c.TriggerSkipped("manifest missing")
	c.TriggerSkipped("manifest missing")
	c.TriggerSkipped("payload missing")
	c.ManifestAborted(errors.New("bad row"))
	c.CopySucceeded(100, 1)
	c.CopySucceeded(300, 2)
	c.CopyExists()
	c.CopyFailed(errors.New("disk full"))
	c.ErrorSinkFailed("/dst/a.err", errors.New("read-only"))

	s := c.Snapshot()
	assert.EqualValues(t, 1, s.TriggersProcessed)
	assert.EqualValues(t, 3, s.TriggersSkipped)
	assert.Equal(t, map[string]int64{"manifest missing": 2, "payload missing": 1}, s.SkipReasons)
	assert.EqualValues(t, 1, s.ManifestsAborted)
	assert.EqualValues(t, 2, s.Copied)
	assert.EqualValues(t, 1, s.Revisions)
	assert.EqualValues(t, 1, s.AlreadyExisting)
	assert.EqualValues(t, 1, s.Failed)
	assert.EqualValues(t, 400, s.BytesCopied)
	assert.Equal(t, []SinkFailure{{Path: "/dst/a.err", Error: "read-only"}}, s.ErrorSinkFailures)
	assert.InDelta(t, 300, s.SizeMax, 1)
	assert.InDelta(t, 100, s.SizeP50, 1)
}

func TestCollectorEmptySnapshot(t *testing.T) {
	s := NewCollector().Snapshot()
	assert.Zero(t, s.SizeMax)
	assert.Zero(t, s.Copied)
	assert.Empty(t, s.SkipReasons)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.CopySucceeded(int64(j), 1)
				c.TriggerSkipped("payload missing")
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.EqualValues(t, 1600, s.Copied)
	assert.EqualValues(t, 1600, s.SkipReasons["payload missing"])
}

var _ Recorder = Nop{}
var _ Recorder = (*Collector)(nil)
