/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"sort"
	"time"
)

// This file defines the records that flow between the extraction stages and the
// artifacts written at the end of a run. They serialize to JSON for the run
// report and map one-to-one onto CSV columns and index tables.

// Utterance is one contiguous block of dialogue attributed to one character in
// one episode. Values are immutable once a block has been flushed.
type Utterance struct {
	Character string `json:"character"`
	Dialogue  string `json:"dialogue"`
	Episode   string `json:"episode"`
}

// CharacterCount is the number of dialogue blocks attributed to a character
// across the whole corpus.
type CharacterCount struct {
	Character string `json:"character"`
	Blocks    int    `json:"dialogue_blocks"`
}

// Corpus is the filtered, episode-ordered dataset plus its per-character summary.
type Corpus struct {
	Records []Utterance      `json:"records"`
	Counts  []CharacterCount `json:"counts"`
}

// Characters returns the set of characters present in Counts, in Counts order.
func (c Corpus) Characters() []string {
	out := make([]string, 0, len(c.Counts))
	for _, cc := range c.Counts {
		out = append(out, cc.Character)
	}
	return out
}

// File outcome values used in FileResult.Status.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// FileResult records what happened to a single script file during a run.
type FileResult struct {
	File       string `json:"file"`
	Episode    string `json:"episode,omitempty"`
	Status     string `json:"status"`
	Lines      int    `json:"lines"`
	Utterances int    `json:"utterances"`
	Error      string `json:"error,omitempty"`
}

// RunSummary aggregates FileResult values.
type RunSummary struct {
	Files      int `json:"files"`
	OK         int `json:"ok"`
	Failed     int `json:"failed"`
	Extracted  int `json:"extracted"`
	Kept       int `json:"kept"`
	Characters int `json:"characters"`
}

// RunReport is the JSON document written next to the CSV artifacts.
type RunReport struct {
	RunID      string       `json:"run_id"`
	Version    string       `json:"version"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Threshold  int          `json:"threshold"`
	Summary    RunSummary   `json:"summary"`
	Files      []FileResult `json:"files"`
	Artifacts  []string     `json:"artifacts,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// Finalize sorts files by name and recomputes the per-file part of Summary.
// Kept and Characters are set by the caller from the assembled corpus.
func (r *RunReport) Finalize() {
	sort.SliceStable(r.Files, func(i, j int) bool { return r.Files[i].File < r.Files[j].File })
	s := RunSummary{Files: len(r.Files), Kept: r.Summary.Kept, Characters: r.Summary.Characters}
	for _, f := range r.Files {
		switch f.Status {
		case StatusOK:
			s.OK++
			s.Extracted += f.Utterances
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}
