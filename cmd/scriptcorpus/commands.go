/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"scriptcorpus/internal/analyze"
	"scriptcorpus/internal/backend"
	"scriptcorpus/internal/config"
	"scriptcorpus/internal/corpus"
	"scriptcorpus/internal/crash"
	"scriptcorpus/internal/domain"
	applog "scriptcorpus/internal/log"
	"scriptcorpus/internal/names"
	"scriptcorpus/internal/pipeline"
	"scriptcorpus/internal/report"
	"scriptcorpus/internal/script"
	"scriptcorpus/internal/storage"
	"scriptcorpus/internal/telemetry"
	"scriptcorpus/internal/textio"
)

func cmdRun(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("run")
	skip := fs.Bool("skip-format", false, "extract from the formatted dir without reformatting")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, pw, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer crash.Recover(cfg.Paths.CrashDir, os.Args)
	return runPipeline(ctx, cfg, pw, cfg.Paths.FormattedDir, *skip)
}

func cmdExtract(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("extract")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 1 {
		return errUsage
	}
	cfg, pw, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer crash.Recover(cfg.Paths.CrashDir, os.Args)
	dir := cfg.Paths.FormattedDir
	if fs.NArg() == 1 {
		dir = fs.Arg(0)
	}
	return runPipeline(ctx, cfg, pw, dir, true)
}

// runPipeline runs the batch and writes every configured artifact. Failures of
// the optional stages become report warnings; only the CSVs are mandatory.
func runPipeline(ctx context.Context, cfg config.AppConfig, pgPassword, formattedDir string, skipFormat bool) error {
	l := applog.WithOperation(applog.WithComponent("cli"), "run")
	enc, err := textio.ParseEncoding(cfg.Input.Encoding)
	if err != nil {
		return err
	}
	resolve, err := newResolver(cfg.Extract.AliasesFile)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, pipeline.Options{
		RawDir:       cfg.Paths.RawDir,
		FormattedDir: formattedDir,
		Extensions:   cfg.Input.Extensions,
		Encoding:     enc,
		Workers:      cfg.Extract.Workers,
		Threshold:    cfg.Extract.Threshold,
		Resolver:     resolve,
		SkipFormat:   skipFormat,
		Observer:     logObserver{l: l},
	})
	rep := res.Report
	ctx = applog.ContextWithRun(ctx, rep.RunID)
	if errors.Is(err, pipeline.ErrNoInput) {
		if werr := pipeline.WriteReport(cfg.Paths.RunReport, rep); werr != nil {
			l.WarnContext(ctx, "write run report failed", slog.Any("err", werr))
		}
		return fmt.Errorf("%w (raw_dir=%s, formatted_dir=%s)", err, cfg.Paths.RawDir, formattedDir)
	}
	if err != nil {
		return err
	}

	if err := corpus.WriteFiles(res.Corpus, cfg.Paths.DialogueCSV, cfg.Paths.CountsCSV); err != nil {
		return err
	}
	rep.Artifacts = append(rep.Artifacts, cfg.Paths.DialogueCSV, cfg.Paths.CountsCSV)

	warn := func(stage string, err error) {
		l.WarnContext(ctx, stage+" failed", slog.Any("err", err))
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %v", stage, err))
	}
	if cfg.Storage.Enabled {
		if err := indexRun(ctx, cfg, rep, res); err != nil {
			warn("index", err)
		} else {
			rep.Artifacts = append(rep.Artifacts, cfg.Paths.Index)
		}
	}
	if cfg.Report.Enabled {
		err := report.WriteCountsPDF(cfg.Paths.ReportPDF, res.Corpus.Counts, reportOptions(cfg))
		switch {
		case errors.Is(err, report.ErrNothingToPlot):
			l.InfoContext(ctx, "report skipped", slog.String("reason", err.Error()))
		case err != nil:
			warn("report", err)
		default:
			rep.Artifacts = append(rep.Artifacts, cfg.Paths.ReportPDF)
		}
	}
	if cfg.Analysis.Enabled {
		if chart, err := runAnalysis(cfg, cfg.Analysis.Glob, cfg.Analysis.ChartPDF, cfg.Analysis.Stem); err != nil {
			warn("analysis", err)
		} else if chart != "" {
			rep.Artifacts = append(rep.Artifacts, chart)
		}
	}
	if cfg.Postgres.Enabled {
		if err := exportPG(ctx, cfg, pgPassword, rep, res.Corpus); err != nil {
			warn("postgres", err)
		}
	}

	if err := pipeline.WriteReport(cfg.Paths.RunReport, rep); err != nil {
		return err
	}
	if err := telemetry.Default().RunFinished(ctx, rep); err != nil {
		l.DebugContext(ctx, "run notice not sent", slog.Any("err", err))
	}
	s := rep.Summary
	_, _ = fmt.Fprintf(stdout, "run %s: %d files (%d failed), %d utterances extracted, %d kept from %d characters\n",
		rep.RunID, s.Files, s.Failed, s.Extracted, s.Kept, s.Characters)
	_, _ = fmt.Fprintf(stdout, "wrote %s and %s\n", cfg.Paths.DialogueCSV, cfg.Paths.CountsCSV)
	return nil
}

// newResolver builds the cue resolver from the built-in aliases plus an
// optional YAML alias file.
func newResolver(aliasesFile string) (script.Resolver, error) {
	aliases := names.DefaultAliases()
	if aliasesFile != "" {
		extra, err := names.LoadAliasFile(aliasesFile)
		if err != nil {
			return nil, err
		}
		aliases.Merge(extra)
	}
	return names.NewNormalizer(aliases).Resolve, nil
}

// openIndex checks the index for damage, recreating it if needed, and opens it.
func openIndex(ctx context.Context, path string) (*sql.DB, error) {
	if recreated, err := storage.RecoverIndex(ctx, path); err != nil {
		return nil, err
	} else if recreated {
		applog.WithComponent("cli").WarnContext(ctx, "index was damaged and has been recreated", slog.String("path", path))
	}
	return storage.OpenIndex(path)
}

func indexRun(ctx context.Context, cfg config.AppConfig, rep domain.RunReport, res pipeline.Result) error {
	db, err := openIndex(ctx, cfg.Paths.Index)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.SaveCorpus(ctx, db, rep, res.Corpus); err != nil {
		return err
	}
	if len(res.Scripts) == 0 {
		return nil
	}
	if err := storage.SaveCanonicalScripts(ctx, db, rep.RunID, res.Scripts, time.Now().UTC()); err != nil {
		return err
	}
	n, err := storage.PruneCanonicalScripts(ctx, db, cfg.Storage.KeepScripts)
	if err != nil {
		return err
	}
	if n > 0 {
		applog.WithComponent("cli").DebugContext(ctx, "pruned canonical scripts", slog.Int64("removed", n))
	}
	return nil
}

func reportOptions(cfg config.AppConfig) report.Options {
	return report.Options{Top: cfg.Report.Top, Exclude: cfg.Report.Exclude, Title: cfg.Report.Title}
}

// runAnalysis prints the top terms per topic and, when chartPath is set,
// renders the topic distribution chart. It returns the chart path written.
func runAnalysis(cfg config.AppConfig, glob, chartPath string, stem bool) (string, error) {
	rows, err := analyze.LoadAnnotated(glob)
	if err != nil {
		return "", err
	}
	topics, err := analyze.TopTerms(rows, analyze.Options{
		TopN:        cfg.Analysis.TopTerms,
		MaxFeatures: cfg.Analysis.MaxFeatures,
		Stem:        stem,
		Topics:      cfg.Analysis.Topics,
	})
	if err != nil {
		return "", err
	}
	if err := analyze.WriteText(stdout, topics); err != nil {
		return "", err
	}
	if chartPath == "" || len(cfg.Analysis.Characters) == 0 {
		return "", nil
	}
	d := analyze.TopicDistribution(rows, cfg.Analysis.Characters)
	if err := report.WriteTopicsPDF(chartPath, d, cfg.Analysis.Topics, ""); err != nil {
		if errors.Is(err, report.ErrNothingToPlot) {
			return "", nil
		}
		return "", err
	}
	return chartPath, nil
}

func exportPG(ctx context.Context, cfg config.AppConfig, password string, rep domain.RunReport, c domain.Corpus) error {
	db, err := backend.Open(ctx, cfg.Postgres.DSNWithPassword(password))
	if err != nil {
		return err
	}
	defer db.Close()
	return backend.ExportCorpus(ctx, db, rep, c)
}

func cmdFormat(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("format")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 && fs.NArg() != 2 {
		return errUsage
	}
	cfg, _, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer crash.Recover(cfg.Paths.CrashDir, os.Args)
	src, dst := cfg.Paths.RawDir, cfg.Paths.FormattedDir
	if fs.NArg() == 2 {
		src, dst = fs.Arg(0), fs.Arg(1)
	}
	enc, err := textio.ParseEncoding(cfg.Input.Encoding)
	if err != nil {
		return err
	}
	files, err := textio.ListScripts(src, cfg.Input.Extensions)
	if err != nil {
		return err
	}
	l := applog.WithOperation(applog.WithComponent("cli"), "format")
	ok := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := script.FormatFile(f, filepath.Join(dst, filepath.Base(f)), enc)
		if err != nil {
			l.Warn("format failed", slog.String("file", f), slog.Any("err", err))
			continue
		}
		l.Debug("formatted", slog.String("file", f), slog.Int("lines", n))
		ok++
	}
	_, _ = fmt.Fprintf(stdout, "formatted %d of %d files into %s\n", ok, len(files), dst)
	if ok == 0 {
		return pipeline.ErrNoInput
	}
	return nil
}

func cmdReport(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("report")
	out := fs.String("o", "", "output PDF (default paths.report_pdf)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, _, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer crash.Recover(cfg.Paths.CrashDir, os.Args)
	path := cfg.Paths.ReportPDF
	if *out != "" {
		path = *out
	}
	counts, err := corpus.ReadCountsCSV(cfg.Paths.CountsCSV)
	if errors.Is(err, os.ErrNotExist) && cfg.Storage.Enabled {
		// fall back to the last indexed run
		db, oerr := storage.OpenIndex(cfg.Paths.Index)
		if oerr != nil {
			return oerr
		}
		defer db.Close()
		counts, err = storage.CharacterCounts(ctx, db, 0)
	}
	if err != nil {
		return err
	}
	if err := report.WriteCountsPDF(path, counts, reportOptions(cfg)); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, "wrote", path)
	return nil
}

func cmdAnalyze(_ context.Context, args []string) error {
	fs, cfgPath := newFlags("analyze")
	stem := fs.Bool("stem", false, "reduce terms to their English stem")
	chart := fs.String("chart", "", "also write the topic distribution PDF here")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 1 {
		return errUsage
	}
	cfg, _, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer crash.Recover(cfg.Paths.CrashDir, os.Args)
	glob := cfg.Analysis.Glob
	if fs.NArg() == 1 {
		glob = fs.Arg(0)
	}
	written, err := runAnalysis(cfg, glob, *chart, *stem || cfg.Analysis.Stem)
	if err != nil {
		return err
	}
	if written != "" {
		_, _ = fmt.Fprintln(stdout, "wrote", written)
	}
	return nil
}

func cmdExportPG(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("export-pg")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, pw, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer crash.Recover(cfg.Paths.CrashDir, os.Args)
	db, err := storage.OpenIndex(cfg.Paths.Index)
	if err != nil {
		return err
	}
	defer db.Close()
	run, err := storage.LatestRun(ctx, db)
	if err != nil {
		return err
	}
	c, err := storage.LoadCorpus(ctx, db)
	if err != nil {
		return err
	}
	rep := domain.RunReport{
		RunID:      run.RunID,
		Version:    run.Version,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Threshold:  run.Threshold,
		Summary: domain.RunSummary{
			Files:      run.Files,
			OK:         run.Files - run.Failed,
			Failed:     run.Failed,
			Kept:       run.Kept,
			Characters: len(c.Counts),
		},
	}
	if err := exportPG(ctx, cfg, pw, rep, c); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "exported run %s (%d utterances) to postgres\n", rep.RunID, len(c.Records))
	return nil
}
