/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pipeline runs the format and extract stages over a directory of
// script files and assembles the corpus. Files are processed concurrently;
// results are merged in file-name order so output matches a sequential run.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scriptcorpus/internal/corpus"
	"scriptcorpus/internal/domain"
	applog "scriptcorpus/internal/log"
	"scriptcorpus/internal/script"
	"scriptcorpus/internal/textio"
	"scriptcorpus/internal/version"
)

// ErrNoInput means no script file could be read. It is a configuration error,
// not a per-file one.
var ErrNoInput = errors.New("no script files could be read")

// Options configures a Run.
type Options struct {
	RawDir       string
	FormattedDir string
	Extensions   []string
	Encoding     textio.Encoding
	Workers      int
	Threshold    int
	// Resolver gates and canonicalises cue names; nil uses the default aliases.
	Resolver script.Resolver
	// SkipFormat extracts straight from FormattedDir without reading RawDir.
	SkipFormat bool
	Observer   Observer
}

// Result is the outcome of a Run.
type Result struct {
	Report domain.RunReport
	Corpus domain.Corpus
	// Scripts holds the canonical text of each formatted file, keyed by base
	// name. Empty when SkipFormat is set.
	Scripts map[string]string
}

// Observer receives progress events. Implementations must be safe for
// concurrent use; file events arrive from worker goroutines.
type Observer interface {
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	OnFileDone(stage string, res domain.FileResult)
}

type nopObserver struct{}

func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}
func (nopObserver) OnFileDone(string, domain.FileResult)               {}

// Run formats every raw script (unless SkipFormat), extracts dialogue from the
// formatted copies and assembles the corpus. Per-file failures are logged and
// recorded in the report; only cancellation or ErrNoInput abort the run.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	runID := uuid.NewString()
	ctx = applog.ContextWithRun(ctx, runID)
	l := applog.WithOperation(applog.WithComponent("pipeline"), "run")

	rep := domain.RunReport{
		RunID:     runID,
		Version:   version.String(),
		StartedAt: time.Now().UTC(),
		Threshold: opts.Threshold,
		Files:     []domain.FileResult{},
	}
	res := Result{Scripts: map[string]string{}}
	failed := map[string]domain.FileResult{}

	var inputs []string
	// Formatted copies are always written as UTF-8.
	extractEnc := textio.UTF8
	if !opts.SkipFormat {
		started := time.Now()
		fr, scripts, err := formatAll(ctx, opts)
		if err != nil {
			return res, err
		}
		ok := 0
		for _, r := range fr {
			if r.Status == domain.StatusOK {
				inputs = append(inputs, filepath.Join(opts.FormattedDir, r.File))
				ok++
			} else {
				failed[r.File] = r
			}
		}
		res.Scripts = scripts
		opts.Observer.OnPhaseDone("format", map[string]any{"files": len(fr), "ok": ok}, time.Since(started))
	} else {
		var err error
		inputs, err = textio.ListScripts(opts.FormattedDir, opts.Extensions)
		if err != nil {
			return res, err
		}
		extractEnc = opts.Encoding
	}

	started := time.Now()
	results, err := extractAll(ctx, opts, extractEnc, inputs)
	if err != nil {
		return res, err
	}
	asm := corpus.NewAssembler()
	ok := 0
	for _, r := range results {
		if r.Status == domain.StatusOK {
			ok++
		}
		rep.Files = append(rep.Files, r.FileResult)
		asm.Add(r.utterances...)
	}
	for _, r := range failed {
		rep.Files = append(rep.Files, r)
	}
	opts.Observer.OnPhaseDone("extract", map[string]any{"files": len(results), "ok": ok, "utterances": asm.Len()}, time.Since(started))

	if ok == 0 {
		rep.FinishedAt = time.Now().UTC()
		rep.Finalize()
		res.Report = rep
		l.ErrorContext(ctx, "no readable scripts", slog.String("raw_dir", opts.RawDir), slog.String("formatted_dir", opts.FormattedDir))
		return res, ErrNoInput
	}

	res.Corpus = asm.Assemble(opts.Threshold)
	rep.Summary.Kept = len(res.Corpus.Records)
	rep.Summary.Characters = len(res.Corpus.Counts)
	rep.FinishedAt = time.Now().UTC()
	rep.Finalize()
	res.Report = rep
	opts.Observer.OnPhaseDone("assemble", map[string]any{"kept": rep.Summary.Kept, "characters": rep.Summary.Characters}, 0)
	l.InfoContext(ctx, "run complete",
		slog.Int("files", rep.Summary.Files),
		slog.Int("failed", rep.Summary.Failed),
		slog.Int("extracted", rep.Summary.Extracted),
		slog.Int("kept", rep.Summary.Kept),
	)
	return res, nil
}

func formatAll(ctx context.Context, opts Options) ([]domain.FileResult, map[string]string, error) {
	files, err := textio.ListScripts(opts.RawDir, opts.Extensions)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(opts.FormattedDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure formatted dir: %w", err)
	}
	l := applog.WithOperation(applog.WithComponent("pipeline"), "format")
	results := make([]domain.FileResult, len(files))
	texts := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, src := range files {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := filepath.Base(src)
			fctx := applog.ContextWithFile(gctx, src)
			r := domain.FileResult{File: name, Status: domain.StatusOK}
			text, err := textio.ReadScript(src, opts.Encoding)
			if err == nil {
				lines := script.FormatLines(text)
				texts[i] = strings.Join(lines, "\n")
				r.Lines = len(lines)
				err = textio.WriteFileAtomic(filepath.Join(opts.FormattedDir, name), []byte(texts[i]))
			}
			if err != nil {
				r.Status = domain.StatusFailed
				r.Error = "format: " + err.Error()
				l.WarnContext(fctx, "skipping script", slog.Any("err", err))
			}
			results[i] = r
			opts.Observer.OnFileDone("format", r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	scripts := make(map[string]string, len(files))
	for i, r := range results {
		if r.Status == domain.StatusOK {
			scripts[r.File] = texts[i]
		}
	}
	return results, scripts, nil
}

type extracted struct {
	domain.FileResult
	utterances []domain.Utterance
}

func extractAll(ctx context.Context, opts Options, enc textio.Encoding, files []string) ([]extracted, error) {
	l := applog.WithOperation(applog.WithComponent("pipeline"), "extract")
	results := make([]extracted, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fctx := applog.ContextWithFile(gctx, path)
			fr, err := script.ExtractFile(path, enc, opts.Resolver)
			r := extracted{FileResult: domain.FileResult{File: filepath.Base(path), Status: domain.StatusOK}}
			if err != nil {
				r.Status = domain.StatusFailed
				r.Error = "extract: " + err.Error()
				l.WarnContext(fctx, "skipping script", slog.Any("err", err))
			} else {
				r.Episode = fr.Episode
				r.Lines = fr.Lines
				r.Utterances = len(fr.Utterances)
				r.utterances = fr.Utterances
				l.DebugContext(fctx, "extracted", slog.String("episode", fr.Episode), slog.Int("utterances", len(fr.Utterances)))
			}
			results[i] = r
			opts.Observer.OnFileDone("extract", r.FileResult)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// WriteReport writes rep as indented JSON.
func WriteReport(path string, rep domain.RunReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	data = append(data, '\n')
	return textio.WriteFileAtomic(path, data)
}
