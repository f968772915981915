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
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"scriptcorpus/internal/config"
	"scriptcorpus/internal/crash"
	applog "scriptcorpus/internal/log"
	"scriptcorpus/internal/version"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// stdout receives command output; tests swap it.
var stdout io.Writer = os.Stdout

var errUsage = errors.New("usage")

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"version", "", "Show version", cmdVersion},
		{"run", "[-config file] [-skip-format]", "Format, extract and assemble the corpus", cmdRun},
		{"format", "[-config file] [<raw> <out>]", "Canonicalise raw scripts only", cmdFormat},
		{"extract", "[-config file] [<formatted>]", "Extract and assemble from formatted scripts", cmdExtract},
		{"classify", "[<line>...]", "Explain classifier decisions (stdin when no lines)", cmdClassify},
		{"search", "[-config file] [-character C] [-episode E] [-limit N] [-pg] [<text>]", "Search the corpus index", cmdSearch},
		{"analyze", "[-config file] [-stem] [-chart file] [<glob>]", "TF-IDF top terms per annotated topic", cmdAnalyze},
		{"report", "[-config file] [-o file]", "Render the side-character chart PDF", cmdReport},
		{"export-pg", "[-config file]", "Push the indexed corpus to Postgres", cmdExportPG},
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "scriptcorpus: screenplay dialogue corpus builder")
	_, _ = fmt.Fprintf(w, "Version: %s\n\n", version.String())
	_, _ = fmt.Fprintln(w, "Usage:")
	for _, c := range commands {
		_, _ = fmt.Fprintf(w, "  scriptcorpus %-9s %s\n      %s\n", c.name, c.args, c.summary)
	}
}

func main() {
	os.Exit(dispatch(os.Args[1:]))
}

func dispatch(args []string) int {
	defer crash.Recover("", os.Args)

	if len(args) == 0 {
		usage(os.Stderr)
		return exitUsage
	}
	name := args[0]
	switch name {
	case "--version", "-v":
		name = "version"
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	}
	for _, c := range commands {
		if c.name != name {
			continue
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err := c.run(ctx, args[1:])
		switch {
		case err == nil:
			return exitOK
		case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
			return exitUsage
		default:
			applog.WithComponent("cli").Error(name+" failed", slog.Any("err", err))
			_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
			return exitError
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	usage(os.Stderr)
	return exitUsage
}

func cmdVersion(context.Context, []string) error {
	_, _ = fmt.Fprintln(stdout, "scriptcorpus", version.String())
	return nil
}

// newFlags returns a flag set carrying the shared -config flag.
func newFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "config file (default ./"+config.FileName+" or the user config)")
	return fs, path
}

// setup loads the configuration and configures logging from it. The returned
// password is the Postgres keyring entry, if any.
func setup(path string) (config.AppConfig, string, error) {
	file := config.Resolve(path)
	cfg, pw, err := config.Load(file)
	if err != nil {
		return cfg, "", err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	applog.WithComponent("cli").Debug("config loaded", slog.String("file", file))
	return cfg, pw, nil
}
