/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"regexp"
	"strings"

	"scriptcorpus/internal/classify"
	"scriptcorpus/internal/domain"
	"scriptcorpus/internal/names"
	"scriptcorpus/internal/textio"
)

var reParenthetical = regexp.MustCompile(`\([^)]*\)`)

// Extract walks canonical lines and returns one Utterance per dialogue block
// whose speaker resolve accepts. A nil resolve uses the default alias table.
//
// Metadata stamps are skipped before anything else. A cue flushes the open
// block and starts a new one; a blank line flushes and leaves no speaker; any
// other line that is not a scene direction has its parentheticals removed and
// is appended to the open block. End of input flushes.
func Extract(lines []string, episode string, resolve Resolver) []domain.Utterance {
	if resolve == nil {
		resolve = names.NewNormalizer(nil).Resolve
	}
	var (
		out       []domain.Utterance
		character string
		fragments []string
	)
	flush := func() {
		if character != "" && len(fragments) > 0 {
			if id, ok := resolve(character); ok {
				out = append(out, domain.Utterance{
					Character: id,
					Dialogue:  strings.Join(fragments, " "),
					Episode:   episode,
				})
			}
		}
		fragments = fragments[:0]
	}

	for _, line := range lines {
		if classify.IsScriptMetadata(line) {
			continue
		}
		if cue, ok := classify.MatchCue(line); ok {
			flush()
			character = ""
			if cue.Words <= maxCueWords {
				character = cue.Name
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			character = ""
			continue
		}
		if character == "" || classify.IsSceneDirection(line) {
			continue
		}
		if text := strings.TrimSpace(reParenthetical.ReplaceAllString(line, "")); text != "" {
			fragments = append(fragments, text)
		}
	}
	flush()
	return out
}

// ExtractFile reads a canonical script, resolves its episode title and
// extracts its dialogue blocks.
func ExtractFile(path string, enc textio.Encoding, resolve Resolver) (FileResult, error) {
	text, err := textio.ReadScript(path, enc)
	if err != nil {
		return FileResult{Path: path}, fmt.Errorf("read %s: %w", path, err)
	}
	lines := textio.SplitLines(text)
	episode := ResolveEpisodeTitle(lines, path)
	return FileResult{
		Path:       path,
		Episode:    episode,
		Lines:      len(lines),
		Utterances: Extract(lines, episode, resolve),
	}, nil
}
