/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"
	"time"

	"scriptcorpus/internal/domain"
)

// logObserver reports pipeline progress through the structured logger.
type logObserver struct{ l *slog.Logger }

func (o logObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	attrs := []any{slog.String("phase", name), slog.Duration("took", dur)}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	o.l.Info("phase done", attrs...)
}

func (o logObserver) OnFileDone(stage string, res domain.FileResult) {
	if res.Status == domain.StatusFailed {
		o.l.Warn("file failed", slog.String("stage", stage), slog.String("file", res.File), slog.String("err", res.Error))
		return
	}
	o.l.Debug("file done", slog.String("stage", stage), slog.String("file", res.File),
		slog.Int("lines", res.Lines), slog.Int("utterances", res.Utterances))
}
