/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package names

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil)
	tests := []struct {
		raw  string
		want string
	}{
		{"HOMER", "HOMER"},
		{"MOE'S CUSTOMER", "MOE"},
		{"HOMER VOICE", "HOMER"},
		{"BURNS-ISH MAN", "BURNS"},
		{"DR. HIBBERT", "HIBBERT"},
		{"MRS KRABAPPEL", "KRABAPPEL"},
		{"REV. LOVEJOY", "LOVEJOY"},
		{"MR. BURNS", "BURNS"},
		{"MARGE. -- CONT", "MARGE"},
		{"KENT   BROCKMAN", "KENT BROCKMAN"},
		{"KRABAPPLE", "KRABAPPEL"},
		{"SISDESHOW BOB", "SIDESHOW BOB"},
		{"COTZ", "BOTZ"},
		{"POLICE CHIEF WIGGUM", "CHIEF WIGGUM"},
		{"GRAMPA", "GRANDPA"},
		{"CRUSTY", "KRUSTY"},
		{"NED", "NED FLANDERS"},
		{"MONROE", "MARVIN MONROE"},
		{"LENNY", "LENNY"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := n.Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotentOnCanonicals(t *testing.T) {
	n := NewNormalizer(nil)
	for _, c := range DefaultAliases().Canonicals() {
		once := n.Normalize(c)
		if twice := n.Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", c, once, twice)
		}
	}
}

func TestAliasConvergence(t *testing.T) {
	n := NewNormalizer(nil)
	groups := [][]string{
		{"KRABAPPLE", "KRABAPPEL", "MRS. KRABAPPEL"},
		{"SKINNER", "PRINCIPAL SKINNER", "SEYMOUR SKINNER"},
		{"BOB", "SIDESHOW BOB", "SISDESHOW BOB"},
		{"LOVEJOY", "REVEREND LOVEJOY", "REV. LOVEJOY"},
		{"QUIMBY", "MAYOR QUIMBY"},
	}
	for _, g := range groups {
		want := n.Normalize(g[0])
		for _, v := range g[1:] {
			if got := n.Normalize(v); got != want {
				t.Errorf("Normalize(%q) = %q, want %q", v, got, want)
			}
		}
	}
}

func TestShouldKeep(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"HOMER", true},
		{"DR. HIBBERT", true},
		{"BART THE GENIUS", false},
		{"TWENTY TWO SHORT FILMS ABOUT", false},
		{"INT. SIMPSON HOUSE", false},
		{"ON TV", false},
		{"KITCHEN - NIGHT", false},
		{"X", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ShouldKeep(tt.raw); got != tt.want {
				t.Errorf("ShouldKeep(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveGatesBeforeNormalizing(t *testing.T) {
	n := NewNormalizer(nil)
	if id, ok := n.Resolve("PRINCIPAL SKINNER"); !ok || id != "SKINNER" {
		t.Fatalf("Resolve = %q,%v", id, ok)
	}
	// normalizes to BURNS, but the gate sees the raw four-word name
	if _, ok := n.Resolve("MR. BURNS'S BIG ASSISTANT"); ok {
		t.Fatalf("four-word raw name must be rejected")
	}
}

func TestLoadAliasFileAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	data := []byte("MOE:\n  - MOE SZYSLAK\n  - MOE BARTENDER\nCHIEF WIGGUM: [CLANCY WIGGUM]\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	extra, err := LoadAliasFile(path)
	if err != nil {
		t.Fatalf("LoadAliasFile: %v", err)
	}
	table := DefaultAliases()
	table.Merge(extra)
	n := NewNormalizer(table)
	for raw, want := range map[string]string{
		"MOE SZYSLAK":   "MOE",
		"MOE":           "MOE",
		"CLANCY WIGGUM": "CHIEF WIGGUM",
		"WIGGUM":        "CHIEF WIGGUM",
	} {
		if got := n.Normalize(raw); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestLoadAliasFileErrors(t *testing.T) {
	if _, err := LoadAliasFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("MOE: {not: a list}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAliasFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
