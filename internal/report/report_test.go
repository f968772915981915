/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"scriptcorpus/internal/analyze"
	"scriptcorpus/internal/domain"
)

func counts() []domain.CharacterCount {
	return []domain.CharacterCount{
		{Character: "HOMER", Blocks: 900}, {Character: "MARGE", Blocks: 400}, {Character: "BART", Blocks: 400},
		{Character: "LISA", Blocks: 350}, {Character: "SEÑOR DING-DONG", Blocks: 10},
	}
}

func TestSelectTop(t *testing.T) {
	got := SelectTop(counts(), Options{Top: 3, Exclude: []string{" homer "}})
	want := []domain.CharacterCount{{Character: "MARGE", Blocks: 400}, {Character: "BART", Blocks: 400}, {Character: "LISA", Blocks: 350}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SelectTop = %+v, want %+v", got, want)
	}
	if got := SelectTop(counts(), Options{}); len(got) != 5 {
		t.Fatalf("default top should keep all five, got %d", len(got))
	}
}

func TestWriteCountsPDF_CreatesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "charts", "side.pdf")
	if err := WriteCountsPDF(out, counts(), Options{Top: 15, Exclude: []string{"HOMER"}, Title: "Top 15 Side Character Dialogue Counts"}); err != nil {
		t.Fatalf("WriteCountsPDF: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", data[:8])
	}
	if !bytes.Contains(data, []byte("Top 15 Side Character Dialogue Counts")) {
		t.Fatalf("title missing from document info")
	}
}

func TestWriteCountsPDF_NothingToPlot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "x.pdf")
	err := WriteCountsPDF(out, []domain.CharacterCount{{Character: "HOMER", Blocks: 3}}, Options{Exclude: []string{"HOMER"}})
	if !errors.Is(err, ErrNothingToPlot) {
		t.Fatalf("err = %v, want ErrNothingToPlot", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no file should be written")
	}
}

func TestWriteTopicsPDF(t *testing.T) {
	d := analyze.Distribution{
		Topics:     []int{1, 2, 3},
		Characters: []string{"BART", "LISA", "MARGE"},
		Counts:     [][]int{{33, 48, 83}, {9, 87, 58}, {5, 97, 38}},
	}
	out := filepath.Join(t.TempDir(), "topics.pdf")
	if err := WriteTopicsPDF(out, d, map[int]string{1: "Themselves"}, ""); err != nil {
		t.Fatalf("WriteTopicsPDF: %v", err)
	}
	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		t.Fatalf("pdf missing or empty: %v", err)
	}
	empty := analyze.Distribution{Topics: []int{1}, Characters: []string{"BART"}, Counts: [][]int{{0}}}
	if err := WriteTopicsPDF(out, empty, nil, ""); !errors.Is(err, ErrNothingToPlot) {
		t.Fatalf("err = %v, want ErrNothingToPlot", err)
	}
}
