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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "scriptcorpus/internal/log"
	"scriptcorpus/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the local SQLite schema for the corpus index.
// Bump this when you perform breaking schema changes and add migrations.
const schemaVersion = 2

// ErrNoPath is returned when no index path is configured.
var ErrNoPath = errors.New("index path is required")

// OpenIndex ensures the SQLite index at path exists, enables WAL mode and
// brings the schema up to date. Callers close the returned *sql.DB.
func OpenIndex(path string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready")
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep the stored schema so runMigrations can step it forward.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Written by a newer build; do not downgrade.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// v2 adds lookup indexes for the search filters and prune query.
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_utterances_character ON utterances(character);`,
				`CREATE INDEX IF NOT EXISTS idx_utterances_episode ON utterances(episode);`,
				`CREATE INDEX IF NOT EXISTS idx_canonical_scripts_file_ts ON canonical_scripts(file, ts);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// best-effort; a failed optimize leaves a valid index
			_, _ = db.ExecContext(ctx, `INSERT INTO fts_utterances(fts_utterances) VALUES('optimize')`)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the corpus tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT    PRIMARY KEY,
			version     TEXT    NOT NULL,
			started_at  TEXT    NOT NULL,
			finished_at TEXT    NOT NULL,
			threshold   INTEGER NOT NULL,
			files       INTEGER NOT NULL,
			failed      INTEGER NOT NULL,
			kept        INTEGER NOT NULL
		);`,
		// One row per kept dialogue block; seq preserves corpus order.
		`CREATE TABLE IF NOT EXISTS utterances (
			id        INTEGER PRIMARY KEY,
			run_id    TEXT    NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			seq       INTEGER NOT NULL,
			character TEXT    NOT NULL,
			episode   TEXT    NOT NULL,
			dialogue  TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_utterances_character ON utterances(character);`,
		`CREATE INDEX IF NOT EXISTS idx_utterances_episode ON utterances(episode);`,

		// External-content FTS5 index over utterances.dialogue, fed by triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_utterances USING fts5(
			dialogue,
			content='utterances',
			content_rowid='id',
			tokenize = 'unicode61'
		);`,

		`CREATE TABLE IF NOT EXISTS character_counts (
			run_id    TEXT    NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			rank      INTEGER NOT NULL,
			character TEXT    NOT NULL,
			blocks    INTEGER NOT NULL,
			PRIMARY KEY(run_id, character)
		);`,

		// Canonical formatter output per file and run, for change tracking.
		`CREATE TABLE IF NOT EXISTS canonical_scripts (
			id     INTEGER PRIMARY KEY,
			run_id TEXT    NOT NULL,
			file   TEXT    NOT NULL,
			ts     TEXT    NOT NULL,
			text   TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_canonical_scripts_file_ts ON canonical_scripts(file, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS utterances_ai AFTER INSERT ON utterances BEGIN
			INSERT INTO fts_utterances(rowid, dialogue) VALUES (new.id, new.dialogue);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS utterances_ad AFTER DELETE ON utterances BEGIN
			INSERT INTO fts_utterances(fts_utterances, rowid, dialogue) VALUES ('delete', old.id, old.dialogue);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS utterances_au AFTER UPDATE OF dialogue ON utterances BEGIN
			INSERT INTO fts_utterances(fts_utterances, rowid, dialogue) VALUES ('delete', old.id, old.dialogue);
			INSERT INTO fts_utterances(rowid, dialogue) VALUES (new.id, new.dialogue);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// RecoverIndex checks the index at path for corruption or a missing schema.
// A damaged file is copied to backups/ next to it and removed, and a fresh
// index is created. It returns true when the index was recreated.
func RecoverIndex(ctx context.Context, path string) (bool, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_recover").With(slog.String("path", path))
	db, err := OpenIndex(path)
	if err != nil {
		if errors.Is(err, ErrNoPath) {
			return false, err
		}
		l.Warn("index unreadable, recreating", slog.Any("err", err))
		return true, recreateIndex(path, err)
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM utterances LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	l.Warn("index failed integrity check, recreating", slog.String("check", chk))
	return true, recreateIndex(path, nil)
}

func recreateIndex(path string, cause error) error {
	backupIndexFile(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	db, err := OpenIndex(path)
	if err != nil {
		if cause != nil {
			return fmt.Errorf("recreate index: %w (open err: %v)", err, cause)
		}
		return fmt.Errorf("recreate index: %w", err)
	}
	return db.Close()
}

// backupIndexFile copies the current index file into a timestamped backup in backups/.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
