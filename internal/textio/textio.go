/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textio reads script and CSV files of unknown encoding and writes
// artifacts atomically.
package textio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Encoding names a source text encoding.
type Encoding string

const (
	UTF8        Encoding = "utf-8"
	Windows1252 Encoding = "windows-1252"
	Latin1      Encoding = "latin1"
)

// ErrUnsupportedEncoding is returned by ParseEncoding.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// ErrBinaryContent is returned by ReadScript for files whose leading bytes
// identify a known binary format (PDF, archives, images, office documents).
var ErrBinaryContent = errors.New("binary content")

// errUndefined marks bytes a strict decoder cannot map.
var errUndefined = errors.New("undefined byte for encoding")

// ParseEncoding maps config spellings onto an Encoding. Empty means UTF8.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "windows-1252", "cp1252":
		return Windows1252, nil
	case "latin1", "iso-8859-1":
		return Latin1, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
}

// Decode converts b to NFC UTF-8 text. For UTF8 invalid sequences are replaced
// with U+FFFD instead of failing, and a leading BOM is dropped.
func Decode(b []byte, enc Encoding) (string, error) {
	var s string
	switch enc {
	case "", UTF8:
		b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
		s = strings.ToValidUTF8(string(b), string(utf8.RuneError))
	case Windows1252:
		out, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", enc, err)
		}
		s = string(out)
	case Latin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", enc, err)
		}
		s = string(out)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, string(enc))
	}
	return norm.NFC.String(s), nil
}

// cp1252Undefined are the five bytes Windows-1252 leaves unassigned.
var cp1252Undefined = [...]byte{0x81, 0x8d, 0x8f, 0x90, 0x9d}

// DecodeStrict decodes b with the first encoding that accepts it: strict UTF-8
// (no invalid sequences), then Windows-1252 (no unassigned bytes), then Latin-1,
// which accepts anything. It reports which encoding was used.
func DecodeStrict(b []byte, order ...Encoding) (string, Encoding, error) {
	if len(order) == 0 {
		order = []Encoding{UTF8, Windows1252, Latin1}
	}
	var lastErr error
	for _, enc := range order {
		switch enc {
		case UTF8:
			if !utf8.Valid(b) {
				lastErr = fmt.Errorf("%s: %w", enc, errUndefined)
				continue
			}
		case Windows1252:
			if containsUndefined(b) {
				lastErr = fmt.Errorf("%s: %w", enc, errUndefined)
				continue
			}
		}
		s, err := Decode(b, enc)
		if err != nil {
			lastErr = err
			continue
		}
		return s, enc, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no encodings to try")
	}
	return "", "", lastErr
}

func containsUndefined(b []byte) bool {
	for _, c := range b {
		for _, u := range cp1252Undefined {
			if c == u {
				return true
			}
		}
	}
	return false
}

// ReadScript reads and decodes a script file. Files sniffed as a binary
// format fail with ErrBinaryContent instead of decoding to garbage.
func ReadScript(path string, enc Encoding) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if kind, _ := filetype.Match(b); kind != filetype.Unknown {
		return "", fmt.Errorf("%w: %s (%s)", ErrBinaryContent, kind.Extension, kind.MIME.Value)
	}
	return Decode(b, enc)
}

// SplitLines splits text on \n, \r\n and \r. A trailing newline does not
// produce a final empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// ListScripts returns the regular files in dir whose extension matches one of
// exts (case-insensitive), sorted by name.
func ListScripts(dir string, exts []string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	want := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = struct{}{}
	}
	var out []string
	for _, e := range ents {
		if !e.Type().IsRegular() {
			continue
		}
		if _, ok := want[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
