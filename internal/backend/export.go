/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"scriptcorpus/internal/domain"
	applog "scriptcorpus/internal/log"
)

// ExportCorpus writes a run and its corpus in one transaction. Exporting the
// same run again replaces its rows.
func ExportCorpus(ctx context.Context, db *sql.DB, rep domain.RunReport, c domain.Corpus) error {
	id, err := uuid.Parse(rep.RunID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", rep.RunID, err)
	}
	l := applog.WithOperation(applog.WithComponent("backend"), "export")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = $1`, id); err != nil {
		return fmt.Errorf("clear run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, version, started_at, finished_at, threshold, files, failed, kept)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		id, rep.Version, rep.StartedAt.UTC(), rep.FinishedAt.UTC(), rep.Threshold,
		rep.Summary.Files, rep.Summary.Failed, len(c.Records),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	ins, err := tx.PrepareContext(ctx, `INSERT INTO utterances(run_id, seq, character, episode, dialogue) VALUES($1,$2,$3,$4,$5)`)
	if err != nil {
		return fmt.Errorf("prepare utterance insert: %w", err)
	}
	defer ins.Close()
	for i, u := range c.Records {
		if _, err := ins.ExecContext(ctx, id, i, u.Character, u.Episode, u.Dialogue); err != nil {
			return fmt.Errorf("insert utterance %d: %w", i, err)
		}
	}

	cnt, err := tx.PrepareContext(ctx, `INSERT INTO character_counts(run_id, rank, character, blocks) VALUES($1,$2,$3,$4)`)
	if err != nil {
		return fmt.Errorf("prepare count insert: %w", err)
	}
	defer cnt.Close()
	for i, cc := range c.Counts {
		if _, err := cnt.ExecContext(ctx, id, i, cc.Character, cc.Blocks); err != nil {
			return fmt.Errorf("insert count %s: %w", cc.Character, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	l.InfoContext(ctx, "corpus exported", slog.String("run", id.String()), slog.Int("utterances", len(c.Records)), slog.Int("characters", len(c.Counts)))
	return nil
}
