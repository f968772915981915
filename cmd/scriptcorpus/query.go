/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"scriptcorpus/internal/backend"
	"scriptcorpus/internal/classify"
	"scriptcorpus/internal/crash"
	"scriptcorpus/internal/storage"
)

func cmdClassify(_ context.Context, args []string) error {
	explain := func(line string) {
		tags := classify.Explain(line)
		if len(tags) == 0 {
			tags = []string{"dialogue"}
		}
		_, _ = fmt.Fprintf(stdout, "%q\t%s\n", line, strings.Join(tags, " "))
	}
	if len(args) > 0 {
		for _, a := range args {
			explain(a)
		}
		return nil
	}
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		explain(sc.Text())
	}
	return sc.Err()
}

func cmdSearch(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("search")
	character := fs.String("character", "", "only this canonical character")
	episode := fs.String("episode", "", "only episodes whose title contains this")
	limit := fs.Int("limit", 20, "maximum results")
	offset := fs.Int("offset", 0, "skip this many results")
	pg := fs.Bool("pg", false, "query Postgres instead of the local index")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, pw, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer crash.Recover(cfg.Paths.CrashDir, os.Args)
	q := storage.SearchQuery{
		Text:      strings.Join(fs.Args(), " "),
		Character: *character,
		Episode:   *episode,
		Limit:     *limit,
		Offset:    *offset,
	}

	var results []storage.SearchResult
	if *pg {
		db, err := backend.Open(ctx, cfg.Postgres.DSNWithPassword(pw))
		if err != nil {
			return err
		}
		defer db.Close()
		results, err = backend.SearchPG(ctx, db, q)
		if err != nil {
			return err
		}
	} else {
		db, err := storage.OpenIndex(cfg.Paths.Index)
		if err != nil {
			return err
		}
		defer db.Close()
		results, err = storage.Search(ctx, db, q)
		if err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, r := range results {
		text := r.Dialogue
		if r.Snippet != "" {
			text = r.Snippet
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Seq, r.Character, r.Episode, text)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "%d result(s)\n", len(results))
	return nil
}
