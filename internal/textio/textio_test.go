/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textio

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeUTF8ReplacesInvalidBytes(t *testing.T) {
	got, err := Decode([]byte("HOMER\nD\xffoh!\n"), UTF8)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "HOMER\nD\uFFFDoh!\n" {
		t.Fatalf("Decode = %q", got)
	}
}

func TestDecodeStripsBOMAndNormalizes(t *testing.T) {
	// "e" + combining acute composes to U+00E9 under NFC
	got, err := Decode([]byte("\xef\xbb\xbfCafe\u0301"), UTF8)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "Caf\u00e9" {
		t.Fatalf("Decode = %q", got)
	}
}

func TestDecodeWindows1252(t *testing.T) {
	got, err := Decode([]byte("\x93Hi\x94 \x85"), Windows1252)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "\u201cHi\u201d \u2026" {
		t.Fatalf("Decode = %q", got)
	}
}

func TestDecodeStrictFallbackOrder(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		enc  Encoding
	}{
		{"valid utf-8", []byte("Mmm, donuts \u2026"), UTF8},
		{"cp1252 quotes", []byte("\x93Hi\x94"), Windows1252},
		{"cp1252 hole falls to latin1", []byte("A\x81B"), Latin1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, enc, err := DecodeStrict(tt.in)
			if err != nil {
				t.Fatalf("DecodeStrict: %v", err)
			}
			if enc != tt.enc {
				t.Fatalf("encoding = %s, want %s", enc, tt.enc)
			}
		})
	}
	if _, _, err := DecodeStrict([]byte("\xff"), UTF8); err == nil {
		t.Fatalf("expected error when only strict utf-8 is allowed")
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"": UTF8, "UTF8": UTF8, "cp1252": Windows1252, "ISO-8859-1": Latin1} {
		got, err := ParseEncoding(in)
		if err != nil || got != want {
			t.Errorf("ParseEncoding(%q) = %s,%v want %s", in, got, err, want)
		}
	}
	if _, err := ParseEncoding("ebcdic"); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("err = %v, want ErrUnsupportedEncoding", err)
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("A\r\nB\rC\n\nD\n")
	want := []string{"A", "B", "C", "", "D"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitLines = %q, want %q", got, want)
	}
	if SplitLines("") != nil {
		t.Fatalf("empty text should yield no lines")
	}
}

func TestListScriptsFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.SCRIPT", "c.pdf", "notes.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := ListScripts(dir, []string{".txt", ".script"})
	if err != nil {
		t.Fatalf("ListScripts: %v", err)
	}
	want := []string{filepath.Join(dir, "a.SCRIPT"), filepath.Join(dir, "b.txt")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListScripts = %v, want %v", got, want)
	}
	if _, err := ListScripts(filepath.Join(dir, "missing"), nil); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dialogue.csv")
	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "two" {
		t.Fatalf("content = %q, %v", b, err)
	}
	ents, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestReadScriptRejectsBinaryContent(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.txt")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadScript(pdf, UTF8); !errors.Is(err, ErrBinaryContent) {
		t.Fatalf("ReadScript(pdf) err = %v, want ErrBinaryContent", err)
	}

	plain := filepath.Join(dir, "ep.txt")
	if err := os.WriteFile(plain, []byte("HOMER\nD'oh!\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadScript(plain, UTF8)
	if err != nil || got != "HOMER\nD'oh!\n" {
		t.Fatalf("ReadScript(plain) = %q, %v", got, err)
	}
}
