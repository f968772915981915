/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package corpus

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"scriptcorpus/internal/domain"
	"scriptcorpus/internal/textio"
)

// Column headers of the two artifacts. Downstream analysis depends on the
// character and dialogue columns.
var (
	DialogueHeader = []string{"character", "dialogue", "episode"}
	CountsHeader   = []string{"character", "dialogue_blocks"}
)

// ErrBadHeader is returned when a CSV does not start with the expected header.
var ErrBadHeader = errors.New("unexpected csv header")

// WriteDialogueCSV writes one row per record under DialogueHeader.
func WriteDialogueCSV(w io.Writer, records []domain.Utterance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DialogueHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Character, r.Dialogue, r.Episode}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCountsCSV writes one row per character under CountsHeader.
func WriteCountsCSV(w io.Writer, counts []domain.CharacterCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CountsHeader); err != nil {
		return err
	}
	for _, c := range counts {
		if err := cw.Write([]string{c.Character, strconv.Itoa(c.Blocks)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFiles writes both artifacts, each atomically.
func WriteFiles(c domain.Corpus, dialoguePath, countsPath string) error {
	var buf bytes.Buffer
	if err := WriteDialogueCSV(&buf, c.Records); err != nil {
		return fmt.Errorf("encode dialogue csv: %w", err)
	}
	if err := textio.WriteFileAtomic(dialoguePath, buf.Bytes()); err != nil {
		return fmt.Errorf("write dialogue csv: %w", err)
	}
	buf.Reset()
	if err := WriteCountsCSV(&buf, c.Counts); err != nil {
		return fmt.Errorf("encode counts csv: %w", err)
	}
	if err := textio.WriteFileAtomic(countsPath, buf.Bytes()); err != nil {
		return fmt.Errorf("write counts csv: %w", err)
	}
	return nil
}

// ReadCountsCSV reads a counts artifact back in file order.
func ReadCountsCSV(path string) ([]domain.CharacterCount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read counts csv %s: %w", path, err)
	}
	if len(rows) == 0 || len(rows[0]) < 2 || rows[0][0] != CountsHeader[0] || rows[0][1] != CountsHeader[1] {
		return nil, fmt.Errorf("%s: %w", path, ErrBadHeader)
	}
	out := make([]domain.CharacterCount, 0, len(rows)-1)
	for i, row := range rows[1:] {
		n, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad dialogue_blocks %q: %w", path, i+2, row[1], err)
		}
		out = append(out, domain.CharacterCount{Character: row[0], Blocks: n})
	}
	return out, nil
}

// ReadDialogueCSV reads a dialogue artifact back in file order.
func ReadDialogueCSV(path string) ([]domain.Utterance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dialogue csv %s: %w", path, err)
	}
	if len(rows) == 0 || len(rows[0]) < 3 || rows[0][0] != DialogueHeader[0] || rows[0][1] != DialogueHeader[1] || rows[0][2] != DialogueHeader[2] {
		return nil, fmt.Errorf("%s: %w", path, ErrBadHeader)
	}
	out := make([]domain.Utterance, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, domain.Utterance{Character: row[0], Dialogue: row[1], Episode: row[2]})
	}
	return out, nil
}
