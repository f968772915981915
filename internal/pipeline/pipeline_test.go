/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gojsonschema "github.com/xeipuuv/gojsonschema"

	"scriptcorpus/internal/domain"
	"scriptcorpus/internal/textio"
)

func writeRaw(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")), 0o644))
}

func seedScripts(t *testing.T) (raw, formatted string) {
	t.Helper()
	root := t.TempDir()
	raw = filepath.Join(root, "raw")
	formatted = filepath.Join(root, "formatted")
	writeRaw(t, raw, "bart_the_genius.txt",
		"FINAL DRAFT 4/2/90",
		"BART THE GENIUS",
		"",
		"INT. SIMPSON HOUSE - NIGHT",
		"HOMER Mmm, Scrabble.",
		"(reading) oxidize...",
		"",
		"BART",
		"Kwyjibo.",
	)
	writeRaw(t, raw, "mr_plow.txt",
		"MR. PLOW",
		"",
		"HOMER Mr. Plow, that's my name.",
		"",
		"BART",
		"Hey.",
	)
	writeRaw(t, raw, "notes.md", "HOMER", "not a script")
	return raw, formatted
}

func baseOptions(raw, formatted string) Options {
	return Options{
		RawDir:       raw,
		FormattedDir: formatted,
		Extensions:   []string{".txt"},
		Encoding:     textio.UTF8,
		Workers:      4,
		Threshold:    1,
	}
}

func TestRunFormatsExtractsAndAssembles(t *testing.T) {
	raw, formatted := seedScripts(t)
	res, err := Run(context.Background(), baseOptions(raw, formatted))
	require.NoError(t, err)

	want := []domain.Utterance{
		{Character: "HOMER", Dialogue: "Mmm, Scrabble. oxidize...", Episode: "BART THE GENIUS"},
		{Character: "BART", Dialogue: "Kwyjibo.", Episode: "BART THE GENIUS"},
		{Character: "HOMER", Dialogue: "Mr. Plow, that's my name.", Episode: "MR. PLOW"},
		{Character: "BART", Dialogue: "Hey.", Episode: "MR. PLOW"},
	}
	require.Equal(t, want, res.Corpus.Records)
	require.Equal(t, []domain.CharacterCount{{Character: "BART", Blocks: 2}, {Character: "HOMER", Blocks: 2}}, res.Corpus.Counts)

	rep := res.Report
	require.NotEmpty(t, rep.RunID)
	require.Equal(t, 2, rep.Summary.Files)
	require.Equal(t, 2, rep.Summary.OK)
	require.Equal(t, 4, rep.Summary.Extracted)
	require.Equal(t, 4, rep.Summary.Kept)
	require.Equal(t, 2, rep.Summary.Characters)
	require.Equal(t, "bart_the_genius.txt", rep.Files[0].File)
	require.Equal(t, "MR. PLOW", rep.Files[1].Episode)

	for _, name := range []string{"bart_the_genius.txt", "mr_plow.txt"} {
		b, err := os.ReadFile(filepath.Join(formatted, name))
		require.NoError(t, err)
		require.Equal(t, res.Scripts[name], string(b))
	}
	_, err = os.Stat(filepath.Join(formatted, "notes.md"))
	require.True(t, os.IsNotExist(err), "non-script file must not be formatted")
}

func TestRunMatchesSequentialRun(t *testing.T) {
	raw, formatted := seedScripts(t)
	for i := 0; i < 6; i++ {
		writeRaw(t, raw, "extra_"+string(rune('a'+i))+".txt", "MOE", "What?", "", "HOMER", "Beer.")
	}
	opts := baseOptions(raw, formatted)
	opts.Workers = 1
	seq, err := Run(context.Background(), opts)
	require.NoError(t, err)
	opts.Workers = 8
	par, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, seq.Corpus, par.Corpus)
	require.NotEqual(t, seq.Report.RunID, par.Report.RunID)
}

func TestRunRecordsFailedFilesAndContinues(t *testing.T) {
	raw, formatted := seedScripts(t)
	writeRaw(t, raw, "bad.txt", "LISA", "If anyone wants me, I'll be in my room.")
	// A non-empty directory where the formatted copy should go cannot be replaced.
	writeRaw(t, filepath.Join(formatted, "bad.txt"), "keep", "x")

	res, err := Run(context.Background(), baseOptions(raw, formatted))
	require.NoError(t, err)
	require.Equal(t, 3, res.Report.Summary.Files)
	require.Equal(t, 1, res.Report.Summary.Failed)
	require.Equal(t, "bad.txt", res.Report.Files[0].File)
	require.Equal(t, domain.StatusFailed, res.Report.Files[0].Status)
	require.True(t, strings.HasPrefix(res.Report.Files[0].Error, "format: "))
	require.Len(t, res.Corpus.Records, 4)
}

func TestRunEmptyInputIsFatal(t *testing.T) {
	root := t.TempDir()
	raw := filepath.Join(root, "raw")
	require.NoError(t, os.MkdirAll(raw, 0o755))
	_, err := Run(context.Background(), baseOptions(raw, filepath.Join(root, "formatted")))
	require.ErrorIs(t, err, ErrNoInput)

	_, err = Run(context.Background(), baseOptions(filepath.Join(root, "missing"), filepath.Join(root, "formatted")))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoInput)
}

func TestRunSkipFormatReadsFormattedDir(t *testing.T) {
	root := t.TempDir()
	formatted := filepath.Join(root, "formatted")
	writeRaw(t, formatted, "marge_in_chains.txt", "MARGE IN CHAINS", "", "MARGE", "Hmmm.", "", "MARGE", "(quietly) Homie.")
	opts := baseOptions(filepath.Join(root, "does-not-matter"), formatted)
	opts.SkipFormat = true
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, []domain.CharacterCount{{Character: "MARGE", Blocks: 2}}, res.Corpus.Counts)
	require.Equal(t, "MARGE IN CHAINS", res.Corpus.Records[0].Episode)
	require.Empty(t, res.Scripts)
}

func TestRunHonoursCancellation(t *testing.T) {
	raw, formatted := seedScripts(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, baseOptions(raw, formatted))
	require.ErrorIs(t, err, context.Canceled)
}

type recordingObserver struct {
	mu     sync.Mutex
	phases []string
	files  map[string]int
}

func (o *recordingObserver) OnPhaseDone(name string, _ map[string]any, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordingObserver) OnFileDone(stage string, _ domain.FileResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[stage]++
}

func TestRunNotifiesObserver(t *testing.T) {
	raw, formatted := seedScripts(t)
	obs := &recordingObserver{files: map[string]int{}}
	opts := baseOptions(raw, formatted)
	opts.Observer = obs
	_, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, []string{"format", "extract", "assemble"}, obs.phases)
	require.Equal(t, 2, obs.files["format"])
	require.Equal(t, 2, obs.files["extract"])
}

func TestRunReportConformsToSchema(t *testing.T) {
	raw, formatted := seedScripts(t)
	writeRaw(t, raw, "bad.txt", "LISA", "Hi.")
	writeRaw(t, filepath.Join(formatted, "bad.txt"), "keep", "x")
	res, err := Run(context.Background(), baseOptions(raw, formatted))
	require.NoError(t, err)
	res.Report.Artifacts = []string{"dialogue.csv"}

	path := filepath.Join(t.TempDir(), "run_report.json")
	require.NoError(t, WriteReport(path, res.Report))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	schemaBytes, err := os.ReadFile(filepath.Join("..", "..", "docs", "run_report.schema.json"))
	require.NoError(t, err)
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaBytes), gojsonschema.NewBytesLoader(data))
	require.NoError(t, err)
	for _, e := range result.Errors() {
		t.Logf("schema error: %s", e)
	}
	require.True(t, result.Valid(), "run report does not conform to schema")
}
