/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package analyze

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Defaults used when Options fields are zero.
const (
	DefaultTopN        = 10
	DefaultMaxFeatures = 1000
)

// Options tunes TopTerms.
type Options struct {
	TopN        int
	MaxFeatures int
	// Stem reduces terms to their English snowball stem after stop-word removal.
	Stem   bool
	Topics map[int]string
}

// Term is a vocabulary entry with its TF-IDF weight in one topic.
type Term struct {
	Word  string
	Score float64
}

// TopicTerms lists the highest weighted terms of one topic.
type TopicTerms struct {
	ID    int
	Label string
	Rows  int
	Terms []Term
}

// Label returns the configured name of topic id, or "Topic <id>".
func Label(topics map[int]string, id int) string {
	if s, ok := topics[id]; ok && s != "" {
		return s
	}
	return fmt.Sprintf("Topic %d", id)
}

// TopTerms treats all dialogue of a topic as one document and returns the
// top terms of each topic by TF-IDF weight, topics in ascending id order.
//
// Text keeps ASCII letters and whitespace only and is lower-cased. Tokens are
// runs of at least two letters; stop words are dropped. The vocabulary is
// limited to the MaxFeatures most frequent terms (ties by term). Weights use
// raw counts, smooth idf ln((1+n)/(1+df))+1 and L2-normalised rows. Terms with
// zero weight are never listed; ties rank alphabetically.
func TopTerms(rows []Row, opts Options) ([]TopicTerms, error) {
	if len(rows) == 0 {
		return nil, ErrNoDocuments
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = DefaultMaxFeatures
	}

	docs := map[int]*strings.Builder{}
	nrows := map[int]int{}
	for _, r := range rows {
		b, ok := docs[r.Annotation]
		if !ok {
			b = &strings.Builder{}
			docs[r.Annotation] = b
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(r.Dialogue)
		nrows[r.Annotation]++
	}
	ids := make([]int, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	counts := make([]map[string]int, len(ids))
	total := map[string]int{}
	df := map[string]int{}
	for i, id := range ids {
		counts[i] = map[string]int{}
		for _, tok := range Tokenize(docs[id].String(), opts.Stem) {
			counts[i][tok]++
			total[tok]++
		}
		for tok := range counts[i] {
			df[tok]++
		}
	}
	if len(total) == 0 {
		return nil, ErrEmptyVocabulary
	}
	vocab := limitFeatures(total, opts.MaxFeatures)

	n := float64(len(ids))
	out := make([]TopicTerms, 0, len(ids))
	for i, id := range ids {
		weights := make([]Term, 0, len(counts[i]))
		var norm float64
		for tok, tf := range counts[i] {
			if _, ok := vocab[tok]; !ok {
				continue
			}
			idf := math.Log((1+n)/(1+float64(df[tok]))) + 1
			w := float64(tf) * idf
			norm += w * w
			weights = append(weights, Term{Word: tok, Score: w})
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range weights {
				weights[j].Score /= norm
			}
		}
		sort.Slice(weights, func(a, b int) bool {
			if weights[a].Score != weights[b].Score {
				return weights[a].Score > weights[b].Score
			}
			return weights[a].Word < weights[b].Word
		})
		if len(weights) > opts.TopN {
			weights = weights[:opts.TopN]
		}
		out = append(out, TopicTerms{ID: id, Label: Label(opts.Topics, id), Rows: nrows[id], Terms: weights})
	}
	return out, nil
}

// Tokenize cleans text and returns its non-stop-word tokens in order.
func Tokenize(text string, stem bool) []string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		}
		return -1
	}, text)
	var out []string
	for _, tok := range strings.Fields(clean) {
		if len(tok) < 2 || IsStopWord(tok) {
			continue
		}
		if stem {
			if s, err := snowball.Stem(tok, "english", true); err == nil && s != "" {
				tok = s
			}
		}
		out = append(out, tok)
	}
	return out
}

// limitFeatures keeps the max most frequent terms, breaking ties by term.
func limitFeatures(total map[string]int, max int) map[string]struct{} {
	terms := make([]string, 0, len(total))
	for t := range total {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if total[terms[i]] != total[terms[j]] {
			return total[terms[i]] > total[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > max {
		terms = terms[:max]
	}
	keep := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		keep[t] = struct{}{}
	}
	return keep
}

// WriteText prints results in the plain layout used by the analyze command.
func WriteText(w io.Writer, topics []TopicTerms) error {
	for _, t := range topics {
		if _, err := fmt.Fprintf(w, "\n[%d] %s (%d lines)\n%s\n", t.ID, t.Label, t.Rows, strings.Repeat("-", 30)); err != nil {
			return err
		}
		for _, term := range t.Terms {
			if _, err := fmt.Fprintf(w, "  %-15s (%.4f)\n", term.Word, term.Score); err != nil {
				return err
			}
		}
	}
	return nil
}
