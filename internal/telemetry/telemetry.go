/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry posts opt-in run notifications and crash reports to
// user-configured HTTP endpoints. Nothing is sent unless a URL is set.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"scriptcorpus/internal/domain"
	applog "scriptcorpus/internal/log"
	"scriptcorpus/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvNotifyURL = "SC_NOTIFY_URL"
	EnvCrashURL  = "SC_CRASH_UPLOAD_URL"
	EnvTimeoutMS = "SC_NOTIFY_TIMEOUT_MS"
	EnvDebug     = "SC_NOTIFY_DEBUG"
)

// Config holds the endpoints. An empty URL disables that kind of upload.
type Config struct {
	NotifyURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		NotifyURL:    strings.TrimSpace(os.Getenv(EnvNotifyURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms := strings.TrimSpace(os.Getenv(EnvTimeoutMS)); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

// RunNotice is the body posted after a run. It carries counts only, never
// dialogue or file contents.
type RunNotice struct {
	Event      string            `json:"event"`
	RunID      string            `json:"run_id"`
	Version    string            `json:"version"`
	OS         string            `json:"os"`
	Arch       string            `json:"arch"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Summary    domain.RunSummary `json:"summary"`
}

// Client sends notices synchronously and crash reports in the background.
type Client struct {
	cfg Config
	log *slog.Logger
	cli *http.Client
	wg  sync.WaitGroup
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// Default returns the package client configured from the environment.
func Default() *Client {
	defaultOnce.Do(func() { defaultClient = New(FromEnv()) })
	return defaultClient
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	return &Client{
		cfg: cfg,
		log: applog.WithComponent("telemetry"),
		cli: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether run notices will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.NotifyURL != "" }

// RunFinished posts a RunNotice for rep. It is a no-op when disabled.
func (c *Client) RunFinished(ctx context.Context, rep domain.RunReport) error {
	if !c.Enabled() {
		return nil
	}
	body, err := json.Marshal(RunNotice{
		Event:      "run_finished",
		RunID:      rep.RunID,
		Version:    version.String(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Summary:    rep.Summary,
	})
	if err != nil {
		return err
	}
	if err := c.post(ctx, c.cfg.NotifyURL, "application/json", body); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if c.cfg.DebugLogging {
		c.log.DebugContext(ctx, "run notice sent", slog.String("run_id", rep.RunID))
	}
	return nil
}

// UploadCrash posts a crash report in the background. Call Wait before
// exiting to give it a chance to finish.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		defer cancel()
		if err := c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", b); err != nil {
			if c.cfg.DebugLogging {
				c.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		if c.cfg.DebugLogging {
			c.log.Debug("crash report uploaded")
		}
	}()
}

// Wait blocks until background uploads finish or ctx is done.
func (c *Client) Wait(ctx context.Context) {
	if c == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "scriptcorpus/"+version.String())
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
