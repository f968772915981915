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
	"unicode"
	"unicode/utf8"

	"scriptcorpus/internal/classify"
	"scriptcorpus/internal/textio"
)

var (
	// NAME followed by its first dialogue line on the same line.
	reInlineCue = regexp.MustCompile(`^([A-Z][A-Z0-9 .'\-]{1,39})\s+(.*)$`)
	// NAME alone, at most 40 characters.
	reStandaloneCue = regexp.MustCompile(`^[A-Z][A-Z0-9 .'\-]{1,39}$`)
)

// maxInlineCueWords bounds the name part of an inline cue.
const maxInlineCueWords = 4

// FormatLines canonicalises raw script text in a single pass. Each line is
// trimmed and handled by the first rule that applies:
//
//  0. a known episode title is kept whole so ResolveEpisodeTitle can find it
//     in the canonical file, and clears the current character;
//  1. blank: kept, and the current character is cleared;
//  2. "NAME dialogue" with a short all-caps NAME: split onto two lines;
//  3. a cue on its own: kept, becomes the current character;
//  4. with a current character, a line opening with "(" or a non-uppercase
//     letter continues the dialogue;
//  5. anything else is an action line and clears the current character.
//
// All-caps dialogue therefore reads as action, and an all-caps line of several
// words is split at its last space by rule 2.
func FormatLines(raw string) []string {
	lines := textio.SplitLines(raw)
	out := make([]string, 0, len(lines)+len(lines)/4)
	current := ""
	for _, l := range lines {
		line := strings.TrimSpace(l)
		if classify.KnownEpisodeTitle(line) {
			out = append(out, line)
			current = ""
			continue
		}
		if line == "" {
			out = append(out, "")
			current = ""
			continue
		}
		if m := reInlineCue.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			if len(strings.Fields(name)) <= maxInlineCueWords {
				current = name
				out = append(out, name, strings.TrimSpace(m[2]))
				continue
			}
		}
		if reStandaloneCue.MatchString(line) {
			current = line
			out = append(out, line)
			continue
		}
		if current != "" && continuesDialogue(line) {
			out = append(out, line)
			continue
		}
		current = ""
		out = append(out, line)
	}
	return out
}

func continuesDialogue(line string) bool {
	if strings.HasPrefix(line, "(") {
		return true
	}
	r, _ := utf8.DecodeRuneInString(line)
	return !unicode.IsUpper(r)
}

// Format is FormatLines joined with newlines.
func Format(raw string) string {
	return strings.Join(FormatLines(raw), "\n")
}

// FormatFile reads src, canonicalises it and writes the result to dst. It
// returns the number of canonical lines written.
func FormatFile(src, dst string, enc textio.Encoding) (int, error) {
	text, err := textio.ReadScript(src, enc)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", src, err)
	}
	lines := FormatLines(text)
	if err := textio.WriteFileAtomic(dst, []byte(strings.Join(lines, "\n"))); err != nil {
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	return len(lines), nil
}
