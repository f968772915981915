/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package classify holds the stateless line predicates used by the formatter
// and the dialogue extractor. Every predicate is backed by an ordered list of
// named patterns so each rule can be tested and explained on its own.
//
// Classification never fails. Ambiguous lines fall to whichever rule fires
// first, and the rules lean toward dropping dialogue rather than attributing
// it to the wrong character.
package classify

import (
	"regexp"
	"strings"
	"unicode"
)

type namedPattern struct {
	Name string
	RE   *regexp.Regexp
}

func matchesAny(pats []namedPattern, s string) bool {
	for _, p := range pats {
		if p.RE.MatchString(s) {
			return true
		}
	}
	return false
}

func firing(pats []namedPattern, s string) []string {
	var out []string
	for _, p := range pats {
		if p.RE.MatchString(s) {
			out = append(out, p.Name)
		}
	}
	return out
}

// Cue is a line recognised as naming the character about to speak.
type Cue struct {
	Name      string // trimmed cue name, qualifier removed
	Qualifier string // e.g. "V.O." or "CONT'D"; empty when absent
	Words     int
}

// reCue: NAME of uppercase letters, digits, whitespace and . ' # - (at least two
// characters) with an optional trailing (QUALIFIER) drawn from the same set minus #.
var reCue = regexp.MustCompile(`^\s*([A-Z][A-Z0-9\s.'#\-]+?)\s*(?:\(([A-Z0-9\s.'\-]+)\))?\s*$`)

// MatchCue reports whether line is a character cue and returns its parts.
func MatchCue(line string) (Cue, bool) {
	m := reCue.FindStringSubmatch(line)
	if m == nil {
		return Cue{}, false
	}
	name := strings.TrimSpace(m[1])
	return Cue{
		Name:      name,
		Qualifier: strings.TrimSpace(m[2]),
		Words:     len(strings.Fields(name)),
	}, true
}

// IsCharacterCue reports whether line has the shape NAME [(QUALIFIER)].
func IsCharacterCue(line string) bool {
	_, ok := MatchCue(line)
	return ok
}

// IsSceneDirection reports whether the trimmed line is production notation: one
// of the fixed prefixes, or a short all-caps line that does not end in a period.
func IsSceneDirection(line string) bool {
	s := strings.TrimSpace(line)
	if matchesAny(nonDialoguePatterns, s) {
		return true
	}
	return isShortCapsDirection(s)
}

func isShortCapsDirection(s string) bool {
	return isUpper(s) && len(strings.Fields(s)) <= 4 && !strings.HasSuffix(s, ".")
}

// isUpper is true when s has at least one cased letter and no lowercase ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			cased = true
		}
	}
	return cased
}

// IsScriptMetadata reports revision, draft, page, scene-number and date stamps
// anywhere in the line, ignoring case.
func IsScriptMetadata(line string) bool {
	return matchesAny(metadataPatterns, strings.TrimSpace(line))
}

// KnownEpisodeTitle reports whether s is exactly one of the known episode titles.
func KnownEpisodeTitle(s string) bool {
	return matchesAny(episodeTitlePatterns, s)
}

// IsEpisodeTitleLine reports whether a cue name is really an episode title: a
// known title, or any name of four or more words.
func IsEpisodeTitleLine(name string) bool {
	if KnownEpisodeTitle(name) {
		return true
	}
	return len(strings.Fields(name)) >= 4
}

// IsSceneAnnotationName reports whether a cue name contains shot, camera,
// location or time-of-day notation.
func IsSceneAnnotationName(name string) bool {
	return matchesAny(scenePatterns, name)
}

// Explain lists every rule that fires for line, prefixed by its family. It is
// a debugging aid; the predicates above never consult it.
func Explain(line string) []string {
	var out []string
	if c, ok := MatchCue(line); ok {
		out = append(out, "cue:"+c.Name)
		if c.Qualifier != "" {
			out = append(out, "cue-qualifier:"+c.Qualifier)
		}
		for _, n := range firing(episodeTitlePatterns, c.Name) {
			out = append(out, "episode-title:"+n)
		}
		if c.Words >= 4 {
			out = append(out, "episode-title:long-name")
		}
		for _, n := range firing(scenePatterns, c.Name) {
			out = append(out, "scene-annotation:"+n)
		}
	}
	s := strings.TrimSpace(line)
	for _, n := range firing(nonDialoguePatterns, s) {
		out = append(out, "scene-direction:"+n)
	}
	if isShortCapsDirection(s) {
		out = append(out, "scene-direction:short-caps")
	}
	for _, n := range firing(metadataPatterns, s) {
		out = append(out, "metadata:"+n)
	}
	return out
}
