/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "scriptcorpus/internal/domain"

// Script files move through two shapes:
//
//   - raw: whatever layout the source used, cues possibly sharing a line with
//     their first dialogue line ("HOMER Oh, it was great.");
//   - canonical: the output of Format, one cue per line with its dialogue on
//     the following lines and a blank line closing every block.
//
// Extract only ever reads the canonical shape.

// Resolver gates a raw cue name and returns its canonical character identity.
// A false result drops the block.
type Resolver func(raw string) (string, bool)

// maxCueWords caps the words in a cue that can open a dialogue block. Longer
// cues are noise and leave no active character.
const maxCueWords = 5

// titleScanLines is how many leading lines are searched for a known episode title.
const titleScanLines = 21

// FileResult is the outcome of extracting one canonical script file.
type FileResult struct {
	Path       string
	Episode    string
	Lines      int
	Utterances []domain.Utterance
}
