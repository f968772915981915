/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the scriptcorpus YAML configuration. Values come from
// built-in defaults, then the config file, then SC_* environment variables.
// The Postgres password never touches the file; it is kept in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "scriptcorpus.yaml"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// PathsConfig locates every input and artifact of a run.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir"`
	FormattedDir string `yaml:"formatted_dir"`
	DialogueCSV  string `yaml:"dialogue_csv"`
	CountsCSV    string `yaml:"counts_csv"`
	RunReport    string `yaml:"run_report"`
	Index        string `yaml:"index"`
	ReportPDF    string `yaml:"report_pdf"`
	CrashDir     string `yaml:"crash_dir"`
}

type InputConfig struct {
	Extensions []string `yaml:"extensions"`
	Encoding   string   `yaml:"encoding"` // "utf-8" | "windows-1252" | "latin1"
}

type ExtractConfig struct {
	// Threshold keeps a character when its block count is strictly greater.
	Threshold   int    `yaml:"threshold"`
	Workers     int    `yaml:"workers"`
	AliasesFile string `yaml:"aliases_file"`
}

type StorageConfig struct {
	Enabled bool `yaml:"enabled"`
	// KeepScripts bounds canonical script snapshots kept per file.
	KeepScripts int `yaml:"keep_scripts"`
}

type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	// Password is not stored on disk; it lives in the OS keychain.
}

type ReportConfig struct {
	Enabled bool     `yaml:"enabled"`
	Top     int      `yaml:"top"`
	Exclude []string `yaml:"exclude"`
	Title   string   `yaml:"title"`
}

type AnalysisConfig struct {
	Enabled     bool           `yaml:"enabled"`
	Glob        string         `yaml:"glob"`
	TopTerms    int            `yaml:"top_terms"`
	MaxFeatures int            `yaml:"max_features"`
	Stem        bool           `yaml:"stem"`
	Topics      map[int]string `yaml:"topics"`
	// Characters are the series of the topic distribution chart.
	Characters  []string       `yaml:"characters"`
	ChartPDF    string         `yaml:"chart_pdf"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the full configuration of a run.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Paths         PathsConfig    `yaml:"paths"`
	Input         InputConfig    `yaml:"input"`
	Extract       ExtractConfig  `yaml:"extract"`
	Storage       StorageConfig  `yaml:"storage"`
	Postgres      PostgresConfig `yaml:"postgres"`
	Report        ReportConfig   `yaml:"report"`
	Analysis      AnalysisConfig `yaml:"analysis"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// DefaultTopics labels the annotation ids of the topic-annotated CSVs.
func DefaultTopics() map[int]string {
	return map[int]string{
		1: "Characters - Themselves",
		2: "Characters - Core Simpsons Family",
		3: "Characters - Non-core Family",
		4: "Physical - Location",
		5: "Physical - Object",
		6: "Non-physical - Event",
		7: "Non-physical - Emotion",
		8: "Non-physical - Opinion/Judgement",
	}
}

// Defaults returns the application defaults. Paths mirror the Data/ layout the
// scripts corpus has always used.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Paths: PathsConfig{
			RawDir:       filepath.Join("Data", "raw_scripts"),
			FormattedDir: filepath.Join("Data", "formatted_scripts"),
			DialogueCSV:  filepath.Join("Data", "simpsons_dialogue_cleaned.csv"),
			CountsCSV:    filepath.Join("Data", "character_line_counts.csv"),
			RunReport:    filepath.Join("Data", "run_report.json"),
			Index:        filepath.Join("Data", "corpus.db"),
			ReportPDF:    filepath.Join("Data", "side_character_dialogue_count.pdf"),
			CrashDir:     "Data",
		},
		Input:    InputConfig{Extensions: []string{".txt", ".script"}, Encoding: "utf-8"},
		Extract:  ExtractConfig{Threshold: 9, Workers: 4},
		Storage:  StorageConfig{Enabled: true, KeepScripts: 3},
		Postgres: PostgresConfig{Enabled: false, DSN: "postgres://scriptcorpus@localhost:5432/scriptcorpus?sslmode=disable"},
		Report:   ReportConfig{Enabled: true, Top: 15, Exclude: []string{"HOMER"}, Title: "Top 15 Side Character Dialogue Counts"},
		Analysis: AnalysisConfig{
			Enabled:     false,
			Glob:        filepath.Join("Data", "*_annotated_dialogue.csv"),
			TopTerms:    10,
			MaxFeatures: 1000,
			Topics:      DefaultTopics(),
			Characters:  []string{"BART", "LISA", "MARGE"},
			ChartPDF:    filepath.Join("Data", "topic_distribution.pdf"),
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvRawDir       = "SC_RAW_DIR"
	EnvFormattedDir = "SC_FORMATTED_DIR"
	EnvIndex        = "SC_INDEX"
	EnvThreshold    = "SC_THRESHOLD"
	EnvWorkers      = "SC_WORKERS"
	EnvEncoding     = "SC_ENCODING"
	EnvPGEnabled    = "SC_PG_ENABLED"
	EnvPGDSN        = "SC_PG_DSN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SC_LOG_LEVEL"
	EnvLogFormat = "SC_LOG_FORMAT"
	EnvLogSource = "SC_LOG_SOURCE"
	EnvLogFile   = "SC_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService    = "ScriptCorpus"
	keyringPGPassword = "postgres_password"
)

const (
	maxWorkers         = 32
	supportedEncodings = "utf-8, windows-1252, latin1"
)

// UserConfigPath returns the per-user config file path.
func UserConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ScriptCorpus")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ScriptCorpus")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "scriptcorpus")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Resolve picks the config file to read: the explicit path if given, then
// ./scriptcorpus.yaml, then the per-user file. It returns "" when none exists.
func Resolve(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	if p, err := UserConfigPath(); err == nil {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the config file at path (if non-empty), applies defaults, and merges
// environment overrides. An explicit path that cannot be read or parsed is an
// error. When Postgres export is enabled the password is loaded from the keyring
// and returned separately.
func Load(path string) (AppConfig, string, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, "", fmt.Errorf("read config %s: %w", path, err)
		}
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, "", err
	}
	var pw string
	if cfg.Postgres.Enabled {
		// keyring may be unavailable (headless CI); the DSN may carry credentials itself
		pw, _ = tokenStore.Get(keyringService, keyringPGPassword)
	}
	return cfg, pw, nil
}

// Save writes the config YAML to path and persists the Postgres password into
// the OS keyring (if non-empty).
func Save(path string, cfg AppConfig, password string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := tokenStore.Set(keyringService, keyringPGPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports settings a run cannot work with. Workers is clamped rather
// than rejected.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Paths.RawDir) == "" {
		return fmt.Errorf("%w: paths.raw_dir is empty", ErrInvalid)
	}
	if strings.TrimSpace(c.Paths.FormattedDir) == "" {
		return fmt.Errorf("%w: paths.formatted_dir is empty", ErrInvalid)
	}
	if c.Extract.Threshold < 0 {
		return fmt.Errorf("%w: extract.threshold must be >= 0, got %d", ErrInvalid, c.Extract.Threshold)
	}
	switch strings.ToLower(c.Input.Encoding) {
	case "", "utf-8", "utf8", "windows-1252", "cp1252", "latin1", "iso-8859-1":
	default:
		return fmt.Errorf("%w: input.encoding %q (supported: %s)", ErrInvalid, c.Input.Encoding, supportedEncodings)
	}
	if len(c.Input.Extensions) == 0 {
		return fmt.Errorf("%w: input.extensions is empty", ErrInvalid)
	}
	if c.Extract.Workers < 1 {
		c.Extract.Workers = 1
	}
	if c.Extract.Workers > maxWorkers {
		c.Extract.Workers = maxWorkers
	}
	return nil
}

// TopicIDs returns the configured topic ids in ascending order.
func (a AnalysisConfig) TopicIDs() []int {
	ids := make([]int, 0, len(a.Topics))
	for id := range a.Topics {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// DSNWithPassword injects password into a URL-form DSN that has a user but no
// password. Key/value DSNs and DSNs that already carry a password are returned
// unchanged.
func (p PostgresConfig) DSNWithPassword(password string) string {
	if password == "" {
		return p.DSN
	}
	u, err := url.Parse(p.DSN)
	if err != nil || u.Scheme == "" || u.User == nil {
		return p.DSN
	}
	if _, set := u.User.Password(); set {
		return p.DSN
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String()
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	mergeString(&dst.Paths.RawDir, src.Paths.RawDir)
	mergeString(&dst.Paths.FormattedDir, src.Paths.FormattedDir)
	mergeString(&dst.Paths.DialogueCSV, src.Paths.DialogueCSV)
	mergeString(&dst.Paths.CountsCSV, src.Paths.CountsCSV)
	mergeString(&dst.Paths.RunReport, src.Paths.RunReport)
	mergeString(&dst.Paths.Index, src.Paths.Index)
	mergeString(&dst.Paths.ReportPDF, src.Paths.ReportPDF)
	mergeString(&dst.Paths.CrashDir, src.Paths.CrashDir)

	if len(src.Input.Extensions) > 0 {
		exts := make([]string, 0, len(src.Input.Extensions))
		for _, e := range src.Input.Extensions {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts = append(exts, e)
		}
		dst.Input.Extensions = exts
	}
	if strings.TrimSpace(src.Input.Encoding) != "" {
		dst.Input.Encoding = strings.ToLower(strings.TrimSpace(src.Input.Encoding))
	}

	// src started from Defaults, so zero here means the file asked for zero
	dst.Extract.Threshold = src.Extract.Threshold
	if src.Extract.Workers != 0 {
		dst.Extract.Workers = src.Extract.Workers
	}
	mergeString(&dst.Extract.AliasesFile, src.Extract.AliasesFile)

	// booleans: copy directly from src (file) so user preferences persist
	dst.Storage.Enabled = src.Storage.Enabled
	if src.Storage.KeepScripts > 0 {
		dst.Storage.KeepScripts = src.Storage.KeepScripts
	}
	dst.Postgres.Enabled = src.Postgres.Enabled
	mergeString(&dst.Postgres.DSN, src.Postgres.DSN)

	dst.Report.Enabled = src.Report.Enabled
	if src.Report.Top > 0 {
		dst.Report.Top = src.Report.Top
	}
	if src.Report.Exclude != nil {
		dst.Report.Exclude = src.Report.Exclude
	}
	mergeString(&dst.Report.Title, src.Report.Title)

	dst.Analysis.Enabled = src.Analysis.Enabled
	dst.Analysis.Stem = src.Analysis.Stem
	mergeString(&dst.Analysis.Glob, src.Analysis.Glob)
	if src.Analysis.TopTerms > 0 {
		dst.Analysis.TopTerms = src.Analysis.TopTerms
	}
	if src.Analysis.MaxFeatures > 0 {
		dst.Analysis.MaxFeatures = src.Analysis.MaxFeatures
	}
	if len(src.Analysis.Topics) > 0 {
		dst.Analysis.Topics = src.Analysis.Topics
	}
	if len(src.Analysis.Characters) > 0 {
		dst.Analysis.Characters = src.Analysis.Characters
	}
	mergeString(&dst.Analysis.ChartPDF, src.Analysis.ChartPDF)

	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func mergeString(dst *string, src string) {
	if v := strings.TrimSpace(src); v != "" {
		*dst = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvRawDir)); v != "" {
		cfg.Paths.RawDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFormattedDir)); v != "" {
		cfg.Paths.FormattedDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndex)); v != "" {
		cfg.Paths.Index = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvThreshold)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extract.Threshold = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extract.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvEncoding)); v != "" {
		cfg.Input.Encoding = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGEnabled)); v != "" {
		cfg.Postgres.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Postgres.DSN = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"paths.raw_dir":       EnvRawDir,
	"paths.formatted_dir": EnvFormattedDir,
	"paths.index":         EnvIndex,
	"extract.threshold":   EnvThreshold,
	"extract.workers":     EnvWorkers,
	"input.encoding":      EnvEncoding,
	"postgres.enabled":    EnvPGEnabled,
	"postgres.dsn":        EnvPGDSN,
	"logging.level":       EnvLogLevel,
	"logging.format":      EnvLogFormat,
	"logging.source":      EnvLogSource,
	"logging.file":        EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
