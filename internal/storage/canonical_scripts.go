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
	"sort"
	"time"
)

// language=SQL
// dialect=SQLite
const insertCanonicalScriptSQL = `INSERT INTO canonical_scripts(run_id, file, ts, text) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestCanonicalScriptSQL = `SELECT ts, text FROM canonical_scripts WHERE file = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listCanonicalScriptsSQL = `SELECT run_id, ts, text FROM canonical_scripts WHERE file = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneCanonicalScriptsSQL = `DELETE FROM canonical_scripts WHERE id NOT IN (
	SELECT id FROM (
		SELECT id, ROW_NUMBER() OVER (PARTITION BY file ORDER BY ts DESC, id DESC) AS rn
		FROM canonical_scripts
	) WHERE rn <= ?
)`

// CanonicalScript is one stored version of a formatted script.
type CanonicalScript struct {
	RunID string
	TS    time.Time
	Text  string
}

// SaveCanonicalScripts stores the formatted text of every file of a run,
// keyed by file base name.
func SaveCanonicalScripts(ctx context.Context, db *sql.DB, runID string, scripts map[string]string, ts time.Time) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	files := make([]string, 0, len(scripts))
	for f := range scripts {
		files = append(files, f)
	}
	sort.Strings(files)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stamp := ts.UTC().Format(time.RFC3339Nano)
	for _, f := range files {
		if _, err := tx.ExecContext(ctx, insertCanonicalScriptSQL, runID, f, stamp, scripts[f]); err != nil {
			return fmt.Errorf("insert canonical script %s: %w", f, err)
		}
	}
	return tx.Commit()
}

// LatestCanonicalScript returns the newest stored text for file, or empty if none.
func LatestCanonicalScript(ctx context.Context, db *sql.DB, file string) (string, time.Time, error) {
	var tsStr, txt string
	err := db.QueryRowContext(ctx, selectLatestCanonicalScriptSQL, file).Scan(&tsStr, &txt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		return txt, time.Time{}, nil
	}
	return txt, ts, nil
}

// ListCanonicalScripts returns up to limit most recent versions of file.
func ListCanonicalScripts(ctx context.Context, db *sql.DB, file string, limit int) ([]CanonicalScript, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, listCanonicalScriptsSQL, file, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []CanonicalScript
	for rows.Next() {
		var cs CanonicalScript
		var tsStr string
		if err := rows.Scan(&cs.RunID, &tsStr, &cs.Text); err != nil {
			return nil, err
		}
		cs.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, cs)
	}
	return out, rows.Err()
}

// PruneCanonicalScripts keeps at most keepLast versions per file and deletes older ones.
func PruneCanonicalScripts(ctx context.Context, db *sql.DB, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := db.ExecContext(ctx, pruneCanonicalScriptsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
