/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package corpus tallies extracted utterances across all script files, drops
// rarely speaking characters and writes the two CSV artifacts.
package corpus

import (
	"sort"

	"scriptcorpus/internal/domain"
)

// DefaultThreshold keeps characters with more than nine dialogue blocks.
const DefaultThreshold = 9

// Assembler accumulates utterances in arrival order. It is not safe for
// concurrent use; callers merge per-file results in a fixed order.
type Assembler struct {
	records []domain.Utterance
	tally   map[string]int
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{tally: map[string]int{}}
}

// Add appends records and counts each against its character.
func (a *Assembler) Add(records ...domain.Utterance) {
	for _, r := range records {
		a.records = append(a.records, r)
		a.tally[r.Character]++
	}
}

// Len returns the number of records added so far.
func (a *Assembler) Len() int { return len(a.records) }

// Tally returns a copy of the per-character block counts before filtering.
func (a *Assembler) Tally() map[string]int {
	out := make(map[string]int, len(a.tally))
	for k, v := range a.tally {
		out[k] = v
	}
	return out
}

// Assemble keeps the records of characters with strictly more than threshold
// blocks, sorts them by episode (stable, so file order holds within an episode)
// and summarises the kept characters by descending count, ties by name.
func (a *Assembler) Assemble(threshold int) domain.Corpus {
	kept := make([]domain.Utterance, 0, len(a.records))
	for _, r := range a.records {
		if a.tally[r.Character] > threshold {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Episode < kept[j].Episode })

	counts := make([]domain.CharacterCount, 0, len(a.tally))
	for c, n := range a.tally {
		if n > threshold {
			counts = append(counts, domain.CharacterCount{Character: c, Blocks: n})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Blocks != counts[j].Blocks {
			return counts[i].Blocks > counts[j].Blocks
		}
		return counts[i].Character < counts[j].Character
	})
	return domain.Corpus{Records: kept, Counts: counts}
}
