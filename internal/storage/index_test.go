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
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestOpenIndexCreatesWALAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "corpus.db")
	idx, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("OpenIndex error: %v", err)
	}
	idx.Close()

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 2 {
		t.Fatalf("expected 2 meta tables, got %d", cnt)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('runs','utterances','fts_utterances','character_counts','canonical_scripts')").Scan(&cnt); err != nil {
		t.Fatalf("query core tables: %v", err)
	}
	if cnt != 5 {
		t.Fatalf("expected 5 core tables, got %d", cnt)
	}
	var schema int
	if err := db.QueryRowContext(ctx, "SELECT schema FROM version WHERE id=1").Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
}

func TestOpenIndexTriggersFeedFTS(t *testing.T) {
	db := openTestIndex(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `INSERT INTO runs(run_id, version, started_at, finished_at, threshold, files, failed, kept) VALUES('r1','dev','2024-01-01T00:00:00Z','2024-01-01T00:00:01Z',9,1,0,1)`); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO utterances(id, run_id, seq, character, episode, dialogue) VALUES(10001,'r1',0,'HOMER','MR. PLOW','hello donut world')`); err != nil {
		t.Fatalf("insert utterance: %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fts_utterances WHERE fts_utterances MATCH 'donut'").Scan(&n); err != nil {
		t.Fatalf("fts query: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected FTS to find inserted utterance, got %d", n)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM utterances WHERE id=10001`); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fts_utterances WHERE fts_utterances MATCH 'donut'").Scan(&n); err != nil {
		t.Fatalf("fts query: %v", err)
	}
	if n != 0 {
		t.Fatalf("delete trigger left %d FTS rows", n)
	}
}

func TestOpenIndexRequiresPath(t *testing.T) {
	if _, err := OpenIndex("  "); err != ErrNoPath {
		t.Fatalf("err = %v, want ErrNoPath", err)
	}
}

func openTestIndex(t testing.TB) *sql.DB {
	t.Helper()
	db, err := OpenIndex(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
