/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package names turns raw cue strings into canonical character identities.
package names

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"scriptcorpus/internal/classify"
)

// AliasTable maps a cleaned cue spelling to its canonical identity. Spellings
// absent from the table are their own identity.
type AliasTable map[string]string

// DefaultAliases returns the built-in alias table, including the common
// misspellings seen across the script corpus.
func DefaultAliases() AliasTable {
	return AliasTable{
		"MONROE":              "MARVIN MONROE",
		"MARVIN MONROE":       "MARVIN MONROE",
		"PRYOR":               "PRYOR",
		"KRABAPPEL":           "KRABAPPEL",
		"KRABAPPLE":           "KRABAPPEL",
		"SKINNER":             "SKINNER",
		"PRINCIPAL SKINNER":   "SKINNER",
		"SEYMOUR SKINNER":     "SKINNER",
		"Flanders":            "NED FLANDERS",
		"BURNS":               "BURNS",
		"BOB":                 "SIDESHOW BOB",
		"SIDESHOW BOB":        "SIDESHOW BOB",
		"SISDESHOW BOB":       "SIDESHOW BOB",
		"BOTZ":                "BOTZ",
		"COTZ":                "BOTZ",
		"MELON":               "MELON",
		"WIGGUM":              "CHIEF WIGGUM",
		"POLICE CHIEF WIGGUM": "CHIEF WIGGUM",
		"CHIEF WIGGUM":        "CHIEF WIGGUM",
		"BROCKMAN":            "KENT BROCKMAN",
		"KENT BROCKMAN":       "KENT BROCKMAN",
		"GRAMPA":              "GRANDPA",
		"GRANDPA":             "GRANDPA",
		"HIBBERT":             "HIBBERT",
		"DOCTOR HIBBERT":      "HIBBERT",
		"LOVEJOY":             "LOVEJOY",
		"REV. LOVEJOY":        "LOVEJOY",
		"REVEREND LOVEJOY":    "LOVEJOY",
		"HELEN LOVEJOY":       "HELEN LOVEJOY",
		"CRUSTY":              "KRUSTY",
		"KRUSTY":              "KRUSTY",
		"WINFIELD":            "OLD MAN WINFIELD",
		"OLD MAN WINFIELD":    "OLD MAN WINFIELD",
		"QUIMBY":              "MAYOR QUIMBY",
		"MAYOR QUIMBY":        "MAYOR QUIMBY",
		"NED":                 "NED FLANDERS",
		"FLANDERS":            "NED FLANDERS",
	}
}

// Resolve returns the canonical identity for spelling, or spelling itself.
func (a AliasTable) Resolve(spelling string) string {
	if c, ok := a[spelling]; ok {
		return c
	}
	return spelling
}

// Merge copies every entry of other into a, overriding existing spellings.
// Canonical identities are also registered as mapping to themselves.
func (a AliasTable) Merge(other AliasTable) {
	for k, v := range other {
		a[k] = v
		if _, ok := a[v]; !ok {
			a[v] = v
		}
	}
}

// Canonicals returns the distinct canonical identities in sorted order.
func (a AliasTable) Canonicals() []string {
	seen := map[string]struct{}{}
	for _, v := range a {
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// LoadAliasFile reads a YAML alias file of the form
//
//	CHIEF WIGGUM: [WIGGUM, CLANCY WIGGUM]
//	MOE: [MOE SZYSLAK]
//
// and returns it as a spelling-to-identity table.
func LoadAliasFile(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse alias file %s: %w", path, err)
	}
	t := AliasTable{}
	for canonical, variants := range raw {
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			return nil, fmt.Errorf("parse alias file %s: empty canonical name", path)
		}
		t[canonical] = canonical
		for _, v := range variants {
			if v = strings.TrimSpace(v); v != "" {
				t[v] = canonical
			}
		}
	}
	return t, nil
}

// Cleanup steps applied before the alias lookup, in order.
var (
	rePossessive = regexp.MustCompile(`'S\s.*$`)
	reVoice      = regexp.MustCompile(`\s+VOICE$`)
	reIsh        = regexp.MustCompile(`-ISH\s.*$`)
	reHonorific  = regexp.MustCompile(`^(DR|MR|MRS|MS|MISS|REV|PROF)\.?\s+`)
	reDotDash    = regexp.MustCompile(`\.+\s*-+.*$`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Normalizer canonicalises cue names against an alias table.
type Normalizer struct {
	aliases AliasTable
}

// NewNormalizer returns a Normalizer over aliases. A nil table means DefaultAliases.
func NewNormalizer(aliases AliasTable) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Normalizer{aliases: aliases}
}

// Normalize strips possessive, voice, -ish and honorific debris, collapses
// whitespace and resolves aliases. It is total and deterministic.
func (n *Normalizer) Normalize(raw string) string {
	s := rePossessive.ReplaceAllString(raw, "")
	s = reVoice.ReplaceAllString(s, "")
	s = reIsh.ReplaceAllString(s, "")
	s = reHonorific.ReplaceAllString(s, "")
	s = reDotDash.ReplaceAllString(s, "")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	return n.aliases.Resolve(s)
}

// ShouldKeep is the acceptance gate applied to a raw cue name before it is
// trusted as a speaker.
func ShouldKeep(raw string) bool {
	if classify.IsEpisodeTitleLine(raw) {
		return false
	}
	if classify.IsSceneAnnotationName(raw) {
		return false
	}
	return len(raw) > 1
}

// Resolve gates raw and, when accepted, returns its canonical identity.
func (n *Normalizer) Resolve(raw string) (string, bool) {
	if !ShouldKeep(raw) {
		return "", false
	}
	id := n.Normalize(raw)
	return id, id != ""
}
