/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package analyze

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-4 }

func TestTopTermsWeights(t *testing.T) {
	rows := []Row{
		{Dialogue: "Donuts... donuts!", Annotation: 1},
		{Dialogue: "Beer.", Annotation: 1},
		{Dialogue: "Beer and Moe", Annotation: 2},
	}
	got, err := TopTerms(rows, Options{Topics: map[int]string{1: "Food"}})
	if err != nil {
		t.Fatalf("TopTerms: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("topics = %+v", got)
	}
	if got[0].Label != "Food" || got[1].Label != "Topic 2" || got[0].Rows != 2 {
		t.Fatalf("labels/rows = %+v", got)
	}
	want := [][]Term{
		{{"donuts", 0.94215}, {"beer", 0.33517}},
		{{"moe", 0.81481}, {"beer", 0.57974}},
	}
	for i, terms := range want {
		if len(got[i].Terms) != len(terms) {
			t.Fatalf("topic %d terms = %+v", got[i].ID, got[i].Terms)
		}
		for j, w := range terms {
			g := got[i].Terms[j]
			if g.Word != w.Word || !near(g.Score, w.Score) {
				t.Fatalf("topic %d term %d = %+v, want %+v", got[i].ID, j, g, w)
			}
		}
	}
}

func TestTopTermsLimits(t *testing.T) {
	rows := []Row{{Dialogue: "alpha beta gamma delta alpha beta alpha", Annotation: 4}}
	got, err := TopTerms(rows, Options{TopN: 2})
	if err != nil {
		t.Fatalf("TopTerms: %v", err)
	}
	if len(got[0].Terms) != 2 || got[0].Terms[0].Word != "alpha" || got[0].Terms[1].Word != "beta" {
		t.Fatalf("TopN terms = %+v", got[0].Terms)
	}
	got, err = TopTerms(rows, Options{MaxFeatures: 1})
	if err != nil {
		t.Fatalf("TopTerms: %v", err)
	}
	if len(got[0].Terms) != 1 || got[0].Terms[0].Word != "alpha" || !near(got[0].Terms[0].Score, 1) {
		t.Fatalf("MaxFeatures terms = %+v", got[0].Terms)
	}
}

func TestTopTermsErrors(t *testing.T) {
	if _, err := TopTerms(nil, Options{}); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("err = %v, want ErrNoDocuments", err)
	}
	rows := []Row{{Dialogue: "and the of 42 !!", Annotation: 1}}
	if _, err := TopTerms(rows, Options{}); !errors.Is(err, ErrEmptyVocabulary) {
		t.Fatalf("err = %v, want ErrEmptyVocabulary", err)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("I can't believe it's NOT butter, Lisa! x", false)
	want := []string{"believe", "butter", "lisa"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %q, want %q", got, want)
	}
	got = Tokenize("running jumped", true)
	if !reflect.DeepEqual(got, []string{"run", "jump"}) {
		t.Fatalf("stemmed = %q", got)
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAnnotated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_annotated_dialogue.csv", []byte("character,dialogue,episode,annotation\nBART,Eat my shorts,EP,2\nLISA,\"Dad, no\",EP,3.0\nMARGE,Hmm,EP,\n"))
	// windows-1252 right single quote
	writeFile(t, dir, "b_annotated_dialogue.csv", []byte("dialogue,annotation\nI\x92m Homer,1\n"))
	writeFile(t, dir, "c_annotated_dialogue.csv", []byte("dialogue,topic\nno annotation column,1\n"))
	writeFile(t, dir, "notes.csv", []byte("dialogue,annotation\nignored,1\n"))

	rows, err := LoadAnnotated(filepath.Join(dir, "*_annotated_dialogue.csv"))
	if err != nil {
		t.Fatalf("LoadAnnotated: %v", err)
	}
	want := []Row{
		{Character: "BART", Dialogue: "Eat my shorts", Annotation: 2},
		{Character: "LISA", Dialogue: "Dad, no", Annotation: 3},
		{Dialogue: "I’m Homer", Annotation: 1},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %+v, want %+v", rows, want)
	}
	if _, err := LoadAnnotated(filepath.Join(dir, "none_*.csv")); !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("err = %v, want ErrNoDocuments", err)
	}
}

func TestTopicDistribution(t *testing.T) {
	rows := []Row{
		{Character: "BART", Annotation: 2}, {Character: "bart", Annotation: 2}, {Character: "LISA", Annotation: 5},
		{Character: "HOMER", Annotation: 1}, {Annotation: 3},
	}
	d := TopicDistribution(rows, []string{"Bart", "Lisa"})
	if !reflect.DeepEqual(d.Topics, []int{1, 2, 3, 5}) {
		t.Fatalf("Topics = %v", d.Topics)
	}
	want := [][]int{{0, 2, 0, 0}, {0, 0, 0, 1}}
	if !reflect.DeepEqual(d.Counts, want) || d.Characters[0] != "BART" {
		t.Fatalf("Distribution = %+v", d)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	err := WriteText(&buf, []TopicTerms{{ID: 7, Label: "Non-physical - Emotion", Rows: 3, Terms: []Term{{"love", 0.5}}}})
	if err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[7] Non-physical - Emotion (3 lines)") || !strings.Contains(out, "  love            (0.5000)") {
		t.Fatalf("output = %q", out)
	}
}
