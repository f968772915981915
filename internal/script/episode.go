/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"path/filepath"
	"regexp"
	"strings"

	"scriptcorpus/internal/classify"
)

var reTitleSeparators = regexp.MustCompile(`[_-]`)

// ResolveEpisodeTitle returns the first known episode title found among the
// leading lines, else a title derived from the file name ("bart_the-genius.txt"
// becomes "BART THE GENIUS"). The fallback is a guess.
func ResolveEpisodeTitle(lines []string, path string) string {
	for i, l := range lines {
		if i >= titleScanLines {
			break
		}
		if s := strings.TrimSpace(l); classify.KnownEpisodeTitle(s) {
			return s
		}
	}
	return TitleFromFileName(path)
}

// TitleFromFileName humanizes a script file name into an episode title.
func TitleFromFileName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToUpper(reTitleSeparators.ReplaceAllString(name, " "))
}
