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
	"strings"

	"scriptcorpus/internal/storage"
)

// SearchPG runs q against the most recently started exported run using
// tsvector matching and returns results shaped like storage.Search so the
// two stores can be compared. Seq is the utterance position in the corpus.
func SearchPG(ctx context.Context, db *sql.DB, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(q.Text); s != "" {
		p := place(s)
		b.WriteString("SELECT u.id, u.seq, u.character, u.episode, u.dialogue, ")
		b.WriteString("COALESCE(ts_headline('simple', u.dialogue, plainto_tsquery('simple', " + p + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM utterances u WHERE u.search_vector @@ plainto_tsquery('simple', " + p + ") ")
	} else {
		b.WriteString("SELECT u.id, u.seq, u.character, u.episode, u.dialogue, '' FROM utterances u WHERE TRUE ")
	}
	b.WriteString(" AND u.run_id = (SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1) ")
	if s := strings.TrimSpace(q.Character); s != "" {
		b.WriteString(" AND u.character = " + place(strings.ToUpper(s)) + " ")
	}
	if s := strings.TrimSpace(q.Episode); s != "" {
		b.WriteString(" AND strpos(lower(u.episode), " + place(strings.ToLower(s)) + ") > 0 ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY u.seq ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.ID, &r.Seq, &r.Character, &r.Episode, &r.Dialogue, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
