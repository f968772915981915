/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scriptcorpus/internal/domain"
)

// ErrNoRun is returned when the index holds no saved run.
var ErrNoRun = errors.New("index holds no corpus run")

// RunInfo is the stored summary of a pipeline run.
type RunInfo struct {
	RunID      string
	Version    string
	StartedAt  time.Time
	FinishedAt time.Time
	Threshold  int
	Files      int
	Failed     int
	Kept       int
}

// SaveCorpus records the run and replaces the indexed utterances and counts
// with c in a single transaction.
func SaveCorpus(ctx context.Context, db *sql.DB, rep domain.RunReport, c domain.Corpus) error {
	if rep.RunID == "" {
		return errors.New("run id is required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO runs(run_id, version, started_at, finished_at, threshold, files, failed, kept) VALUES(?,?,?,?,?,?,?,?)`,
		rep.RunID, rep.Version,
		rep.StartedAt.UTC().Format(time.RFC3339Nano), rep.FinishedAt.UTC().Format(time.RFC3339Nano),
		rep.Threshold, rep.Summary.Files, rep.Summary.Failed, len(c.Records),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, q := range []string{"DELETE FROM utterances;", "DELETE FROM character_counts;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear corpus: %w", err)
		}
	}

	ins, err := tx.PrepareContext(ctx, `INSERT INTO utterances(run_id, seq, character, episode, dialogue) VALUES(?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare utterance insert: %w", err)
	}
	defer ins.Close()
	for i, u := range c.Records {
		if _, err := ins.ExecContext(ctx, rep.RunID, i, u.Character, u.Episode, u.Dialogue); err != nil {
			return fmt.Errorf("insert utterance %d: %w", i, err)
		}
	}

	cnt, err := tx.PrepareContext(ctx, `INSERT INTO character_counts(run_id, rank, character, blocks) VALUES(?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare count insert: %w", err)
	}
	defer cnt.Close()
	for i, cc := range c.Counts {
		if _, err := cnt.ExecContext(ctx, rep.RunID, i, cc.Character, cc.Blocks); err != nil {
			return fmt.Errorf("insert count %s: %w", cc.Character, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run.
func LatestRun(ctx context.Context, db *sql.DB) (RunInfo, error) {
	var (
		ri                RunInfo
		started, finished string
	)
	err := db.QueryRowContext(ctx, `SELECT run_id, version, started_at, finished_at, threshold, files, failed, kept
		FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&ri.RunID, &ri.Version, &started, &finished, &ri.Threshold, &ri.Files, &ri.Failed, &ri.Kept)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, ErrNoRun
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("read latest run: %w", err)
	}
	ri.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	ri.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return ri, nil
}

// LoadCorpus reads back the indexed corpus in its original record and count order.
func LoadCorpus(ctx context.Context, db *sql.DB) (domain.Corpus, error) {
	if _, err := LatestRun(ctx, db); err != nil {
		return domain.Corpus{}, err
	}
	var c domain.Corpus
	rows, err := db.QueryContext(ctx, `SELECT character, dialogue, episode FROM utterances ORDER BY seq`)
	if err != nil {
		return c, fmt.Errorf("query utterances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.Utterance
		if err := rows.Scan(&u.Character, &u.Dialogue, &u.Episode); err != nil {
			return c, fmt.Errorf("scan utterance: %w", err)
		}
		c.Records = append(c.Records, u)
	}
	if err := rows.Err(); err != nil {
		return c, err
	}
	c.Counts, err = CharacterCounts(ctx, db, 0)
	return c, err
}

// CharacterCounts returns the indexed counts, largest first. limit <= 0 means all.
func CharacterCounts(ctx context.Context, db *sql.DB, limit int) ([]domain.CharacterCount, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `SELECT character, blocks FROM character_counts ORDER BY rank LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()
	var out []domain.CharacterCount
	for rows.Next() {
		var cc domain.CharacterCount
		if err := rows.Scan(&cc.Character, &cc.Blocks); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}
