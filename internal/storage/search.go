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
	"strings"
)

// SearchQuery describes a dialogue search.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Character matches the canonical identity exactly (case-insensitive);
// Episode matches any episode title containing it.
// Limit/Offset implement pagination; Limit defaults to 100.
type SearchQuery struct {
	Text      string
	Character string
	Episode   string
	Limit     int
	Offset    int
}

// SearchResult is a single matching utterance.
// Snippet highlights the matched terms with [ ] when Text was given.
type SearchResult struct {
	ID        int64
	Seq       int
	Character string
	Episode   string
	Dialogue  string
	Snippet   string
}

// Search runs q against the index. Without Text it scans utterances with the
// filters applied. Results come back in corpus order.
func Search(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT u.id, u.seq, u.character, u.episode, u.dialogue, snippet(fts_utterances, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_utterances JOIN utterances u ON fts_utterances.rowid = u.id\n")
		sb.WriteString("WHERE fts_utterances MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT u.id, u.seq, u.character, u.episode, u.dialogue, ''\n")
		sb.WriteString("FROM utterances u\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Character); s != "" {
		sb.WriteString(" AND u.character = ?\n")
		args = append(args, strings.ToUpper(s))
	}
	if s := strings.TrimSpace(q.Episode); s != "" {
		sb.WriteString(" AND lower(u.episode) LIKE ? ESCAPE '\\'\n")
		args = append(args, likeContains(strings.ToLower(s)))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY u.seq\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.ID, &r.Seq, &r.Character, &r.Episode, &r.Dialogue, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeContains(s string) string { return "%" + likeEscaper.Replace(s) + "%" }
