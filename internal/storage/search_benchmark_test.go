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
	"fmt"
	"testing"
	"time"

	"scriptcorpus/internal/domain"
)

func benchCorpus(n int) domain.Corpus {
	c := domain.Corpus{}
	for i := 0; i < n; i++ {
		c.Records = append(c.Records, domain.Utterance{
			Character: fmt.Sprintf("CHAR%d", i%40),
			Dialogue:  fmt.Sprintf("Hello world benchmark line %d", i),
			Episode:   fmt.Sprintf("EPISODE %d", i/100),
		})
	}
	for i := 0; i < 40; i++ {
		c.Counts = append(c.Counts, domain.CharacterCount{Character: fmt.Sprintf("CHAR%d", i), Blocks: n / 40})
	}
	return c
}

func BenchmarkSearchFTS(b *testing.B) {
	db := openTestIndex(b)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := SaveCorpus(ctx, db, sampleRun("bench", time.Now()), benchCorpus(5000)); err != nil {
		b.Fatalf("SaveCorpus: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Search(ctx, db, SearchQuery{Text: "Hello", Character: "CHAR7"}); err != nil {
			b.Fatalf("Search: %v", err)
		}
	}
}

func BenchmarkSaveCorpus(b *testing.B) {
	db := openTestIndex(b)
	c := benchCorpus(5000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = SaveCorpus(ctx, db, sampleRun(fmt.Sprintf("bench-%d", i), time.Now()), c)
		cancel()
	}
}
