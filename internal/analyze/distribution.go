/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package analyze

import (
	"sort"
	"strings"
)

// Distribution counts annotated lines per character and topic.
// Counts[c][t] belongs to Characters[c] and Topics[t].
type Distribution struct {
	Topics     []int
	Characters []string
	Counts     [][]int
}

// TopicDistribution tallies rows for the given characters (matched
// case-insensitively) over every topic present in rows. Rows without a
// character are ignored.
func TopicDistribution(rows []Row, characters []string) Distribution {
	seen := map[int]bool{}
	for _, r := range rows {
		seen[r.Annotation] = true
	}
	d := Distribution{Characters: make([]string, len(characters))}
	for id := range seen {
		d.Topics = append(d.Topics, id)
	}
	sort.Ints(d.Topics)
	col := make(map[int]int, len(d.Topics))
	for i, id := range d.Topics {
		col[id] = i
	}
	idx := make(map[string]int, len(characters))
	d.Counts = make([][]int, len(characters))
	for i, c := range characters {
		up := strings.ToUpper(strings.TrimSpace(c))
		d.Characters[i] = up
		idx[up] = i
		d.Counts[i] = make([]int, len(d.Topics))
	}
	for _, r := range rows {
		if r.Character == "" {
			continue
		}
		if ci, ok := idx[strings.ToUpper(r.Character)]; ok {
			d.Counts[ci][col[r.Annotation]]++
		}
	}
	return d
}
