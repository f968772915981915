/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package analyze computes per-topic vocabulary statistics over
// topic-annotated dialogue CSVs.
package analyze

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	applog "scriptcorpus/internal/log"
	"scriptcorpus/internal/textio"
)

var (
	// ErrNoDocuments means no annotated dialogue could be loaded.
	ErrNoDocuments = errors.New("no annotated dialogue found")
	// ErrEmptyVocabulary means every term was filtered out.
	ErrEmptyVocabulary = errors.New("empty vocabulary; documents contain only stop words")
	// ErrMissingColumn is returned when an annotated CSV lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)

// Row is one annotated line of dialogue. Character is empty when the file
// carries no character column.
type Row struct {
	Character  string
	Dialogue   string
	Annotation int
}

// LoadAnnotated reads every file matching pattern and concatenates their rows
// in file-name order. Each file is decoded as UTF-8, then windows-1252, then
// latin1. Files that cannot be read or parsed are logged and skipped.
func LoadAnnotated(pattern string) ([]Row, error) {
	l := applog.WithOperation(applog.WithComponent("analyze"), "load")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(files)
	var rows []Row
	for _, f := range files {
		got, err := readAnnotated(f)
		if err != nil {
			l.Warn("skipping annotated file", slog.String("file", f), slog.Any("err", err))
			continue
		}
		rows = append(rows, got...)
	}
	if len(rows) == 0 {
		return nil, ErrNoDocuments
	}
	l.Info("annotated dialogue loaded", slog.Int("files", len(files)), slog.Int("rows", len(rows)))
	return rows, nil
}

func readAnnotated(path string) ([]Row, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, enc, err := textio.DecodeStrict(b, textio.UTF8, textio.Windows1252, textio.Latin1)
	if err != nil {
		return nil, err
	}
	applog.WithComponent("analyze").Debug("decoded annotated file", slog.String("file", path), slog.String("encoding", string(enc)))

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	col := map[string]int{}
	for i, h := range recs[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	di, ok := col["dialogue"]
	if !ok {
		return nil, fmt.Errorf("%s: %w: dialogue", filepath.Base(path), ErrMissingColumn)
	}
	ai, ok := col["annotation"]
	if !ok {
		return nil, fmt.Errorf("%s: %w: annotation", filepath.Base(path), ErrMissingColumn)
	}
	ci, hasChar := col["character"]

	out := make([]Row, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		if ai >= len(rec) || di >= len(rec) {
			continue
		}
		id, ok := parseAnnotation(rec[ai])
		if !ok {
			continue
		}
		row := Row{Dialogue: rec[di], Annotation: id}
		if hasChar && ci < len(rec) {
			row.Character = strings.TrimSpace(rec[ci])
		}
		out = append(out, row)
	}
	return out, nil
}

// parseAnnotation accepts "3" and the "3.0" form spreadsheets export.
// Blank or non-numeric cells are unannotated.
func parseAnnotation(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
