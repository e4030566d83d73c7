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

// Package correlate pairs each trigger marker with its manifest and payload
// by shared base name.
package correlate

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/trgcopy/pkg/names"
	"github.com/walteh/trgcopy/pkg/scan"
)

// Reason explains why a trigger is not processed.
type Reason string

const (
	Bound            Reason = ""
	ManifestMissing  Reason = "manifest missing"
	PayloadMissing   Reason = "payload missing"
	PayloadAmbiguous Reason = "payload ambiguous"
)

// 🔗 Match is the correlation result for one trigger.
type Match struct {
	Base     string
	Manifest string // empty unless the manifest exists
	Payload  string // empty unless exactly one payload shares the base name
	Reason   Reason

	// Candidates lists the competing payloads when Reason is PayloadAmbiguous.
	Candidates []string
}

// IsBound reports whether the trigger has both a manifest and a payload.
func (m Match) IsBound() bool {
	return m.Reason == Bound
}

// TriggerSet maps trigger base names to their correlation result.
type TriggerSet map[string]Match

// 🔗 Correlate builds the TriggerSet for a classified folder.
//
// Payloads are indexed by base name; when more than one payload shares a
// trigger's base name the trigger is rejected as ambiguous instead of
// picking one.
func Correlate(ctx context.Context, b *scan.Bucket) TriggerSet {
	logger := zerolog.Ctx(ctx)

	manifests := make(map[string]struct{}, len(b.Manifests))
	for _, m := range b.Manifests {
		manifests[m] = struct{}{}
	}

	payloads := make(map[string][]string, len(b.Payloads))
	for _, p := range b.Payloads {
		base := names.Base(p)
		payloads[base] = append(payloads[base], p)
	}

	set := make(TriggerSet, len(b.Triggers))
	for _, trg := range b.Triggers {
		base := names.Base(trg)
		m := Match{Base: base}

		manifest := names.ManifestFor(base)
		if _, ok := manifests[manifest]; !ok {
			m.Reason = ManifestMissing
			set[base] = m
			continue
		}
		m.Manifest = manifest

		switch candidates := payloads[base]; len(candidates) {
		case 0:
			m.Reason = PayloadMissing
		case 1:
			m.Payload = candidates[0]
		default:
			m.Reason = PayloadAmbiguous
			m.Candidates = candidates
		}
		set[base] = m
	}

	bound, skipped := set.Counts()
	for _, m := range set.Sorted() {
		logger.Debug().
			Str("trigger", m.Base).
			Str("manifest", m.Manifest).
			Str("payload", m.Payload).
			Str("reason", string(m.Reason)).
			Msg("correlated trigger")
	}
	logger.Info().
		Int("processing", bound).
		Int("skipping", skipped).
		Msg("correlated triggers with manifests and payloads")

	return set
}

// Sorted returns every match ordered by base name.
func (s TriggerSet) Sorted() []Match {
	out := make([]Match, 0, len(s))
	for _, m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}

// Bound returns the processable matches ordered by base name.
func (s TriggerSet) Bound() []Match {
	return s.filter(true)
}

// Skipped returns the unprocessable matches ordered by base name.
func (s TriggerSet) Skipped() []Match {
	return s.filter(false)
}

func (s TriggerSet) filter(bound bool) []Match {
	var out []Match
	for _, m := range s.Sorted() {
		if m.IsBound() == bound {
			out = append(out, m)
		}
	}
	return out
}

// Counts returns how many triggers will be processed and how many are skipped.
func (s TriggerSet) Counts() (processed, skipped int) {
	for _, m := range s {
		if m.IsBound() {
			processed++
		} else {
			skipped++
		}
	}
	return processed, skipped
}
