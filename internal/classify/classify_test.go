/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package classify

import (
	"slices"
	"testing"
)

func TestMatchCue(t *testing.T) {
	tests := []struct {
		line      string
		ok        bool
		name      string
		qualifier string
	}{
		{"HOMER", true, "HOMER", ""},
		{"  MARGE  ", true, "MARGE", ""},
		{"HOMER (V.O.)", true, "HOMER", "V.O."},
		{"BART (CONT'D)", true, "BART", "CONT'D"},
		{"DR. HIBBERT", true, "DR. HIBBERT", ""},
		{"MOE'S BARTENDER #2", true, "MOE'S BARTENDER #2", ""},
		{"H", false, "", ""},
		{"Homer", false, "", ""},
		{"HOMER: Woo hoo!", false, "", ""},
		{"HOMER (laughing)", false, "", ""},
		{"", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c, ok := MatchCue(tt.line)
			if ok != tt.ok {
				t.Fatalf("MatchCue(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if !ok {
				return
			}
			if c.Name != tt.name || c.Qualifier != tt.qualifier {
				t.Fatalf("MatchCue(%q) = %+v, want name %q qualifier %q", tt.line, c, tt.name, tt.qualifier)
			}
			if IsCharacterCue(tt.line) != tt.ok {
				t.Fatalf("IsCharacterCue disagrees with MatchCue for %q", tt.line)
			}
		})
	}
}

func TestMatchCueWordCount(t *testing.T) {
	c, ok := MatchCue("TWENTY TWO SHORT FILMS ABOUT")
	if !ok || c.Words != 5 {
		t.Fatalf("got %+v ok=%v, want 5 words", c, ok)
	}
}

func TestIsSceneDirection(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"INT. SIMPSON KITCHEN - DAY", true},
		{"EXT. SPRINGFIELD ELEMENTARY", true},
		{"FADE IN:", true},
		{"CUT TO:", true},
		{"SFX: Doorbell", true},
		{"(laughing)", true},
		{"----------", true},
		{"* * *", true},
		{"3/20/90", true},
		{"Scene 12", true},
		{"Sceene 4", true},
		{"PAGE 7", true},
		{"HE RUNS OFF", true},
		{"  BART EXITS  ", true},
		{"HE RUNS OUT THE DOOR", false},
		{"STOP.", false},
		{"Bart, see me after class.", false},
		{"(sulking) Aw, man.", false},
		{"12345", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := IsSceneDirection(tt.line); got != tt.want {
				t.Errorf("IsSceneDirection(%q) = %v, want %v (rules: %v)", tt.line, got, tt.want, Explain(tt.line))
			}
		})
	}
}

func TestIsScriptMetadata(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Revised Table Draft 3/4/91", true},
		{"FINAL DRAFT", true},
		{"page 12", true},
		{"   (Scene 4)", true},
		{"Delivery draft -- do not copy", true},
		{"TABLE READ", true},
		{"Homer eats a donut.", false},
		{"The final word.", false},
		{"Finally, some peace.", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := IsScriptMetadata(tt.line); got != tt.want {
				t.Errorf("IsScriptMetadata(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestIsEpisodeTitleLine(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"BART THE GENIUS", true},
		{"MR. PLOW", true},
		{"WHO SHOT MR. BURNS? (PART ONE)", true},
		{"TWENTY TWO SHORT FILMS ABOUT", true},
		{"ONE TWO THREE FOUR", true},
		{"HOMER", false},
		{"BART SIMPSON", false},
		{"MR. PLOW GUY", false},
		{"bart the genius", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEpisodeTitleLine(tt.name); got != tt.want {
				t.Errorf("IsEpisodeTitleLine(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestKnownEpisodeTitleIsExact(t *testing.T) {
	if !KnownEpisodeTitle("MAYORED TO THE MOB") {
		t.Fatalf("expected known title")
	}
	if KnownEpisodeTitle("THE MAYORED TO THE MOB") || KnownEpisodeTitle("MAYORED TO THE MOB AGAIN") {
		t.Fatalf("title match must be exact")
	}
	titles := EpisodeTitles()
	titles[0] = "mutated"
	if EpisodeTitles()[0] == "mutated" {
		t.Fatalf("EpisodeTitles must return a copy")
	}
}

func TestIsSceneAnnotationName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"INT. SIMPSON HOUSE", true},
		{"HOMER'S P.O.V.", true},
		{"KITCHEN - NIGHT", true},
		{"ON TV", true},
		{"ON HOMER", true},
		{"ACT TWO", true},
		{"CLOSE-UP", true},
		{"MONTAGE", true},
		{"BY", true},
		{"ONION", false},
		{"BART", false},
		{"MONTAGE MAN", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSceneAnnotationName(tt.name); got != tt.want {
				t.Errorf("IsSceneAnnotationName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	got := Explain("HOMER (V.O.)")
	for _, want := range []string{"cue:HOMER", "cue-qualifier:V.O."} {
		if !slices.Contains(got, want) {
			t.Fatalf("Explain missing %q: %v", want, got)
		}
	}
	got = Explain("INT. KITCHEN - DAY")
	for _, want := range []string{"scene-direction:interior", "scene-annotation:interior", "scene-annotation:time-day"} {
		if !slices.Contains(got, want) {
			t.Fatalf("Explain missing %q: %v", want, got)
		}
	}
	if got := Explain("Just some dialogue."); len(got) != 0 {
		t.Fatalf("expected no rules, got %v", got)
	}
}
