/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package report renders corpus charts to PDF.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"scriptcorpus/internal/domain"
	"scriptcorpus/internal/textio"
)

// ErrNothingToPlot is returned when no rows remain after exclusion.
var ErrNothingToPlot = errors.New("no data to plot")

// Options controls the counts chart.
// Top defaults to 15; Exclude names are compared case-insensitively.
type Options struct {
	Top     int
	Exclude []string
	Title   string
}

// Color is an RGB fill.
type Color struct{ R, G, B int }

// palette cycles across bars and series.
var palette = []Color{
	{31, 119, 180}, {255, 127, 14}, {44, 160, 44}, {214, 39, 40}, {148, 103, 189},
	{140, 86, 75}, {227, 119, 194}, {127, 127, 127}, {188, 189, 34}, {23, 190, 207},
}

// Page geometry in points, A4 landscape.
const (
	pageW   = 842.0
	pageH   = 595.0
	margin  = 36.0
	labelW  = 150.0
	titleH  = 40.0
	valueW  = 40.0
	maxBarH = 24.0
)

// SelectTop drops excluded characters and returns the Top largest counts,
// larger first, keeping input order among equal counts.
func SelectTop(counts []domain.CharacterCount, opt Options) []domain.CharacterCount {
	top := opt.Top
	if top <= 0 {
		top = 15
	}
	skip := make(map[string]bool, len(opt.Exclude))
	for _, e := range opt.Exclude {
		skip[strings.ToUpper(strings.TrimSpace(e))] = true
	}
	out := make([]domain.CharacterCount, 0, len(counts))
	for _, c := range counts {
		if !skip[strings.ToUpper(c.Character)] {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Blocks > out[j].Blocks })
	if len(out) > top {
		out = out[:top]
	}
	return out
}

func newDoc(title string) (*gofpdf.Fpdf, func(string) string) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(title, false)
	pdf.SetAuthor("scriptcorpus", false)
	pdf.SetAutoPageBreak(false, 0)
	// Core fonts are cp1252; translate names such as "Señor Ding-Dong".
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(pageW-2*margin, titleH-12, tr(title), "", 0, "C", false, 0, "")
	return pdf, tr
}

func writeDoc(pdf *gofpdf.Fpdf, path string) error {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := textio.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setFill(pdf *gofpdf.Fpdf, c Color) { pdf.SetFillColor(c.R, c.G, c.B) }

// WriteCountsPDF draws a horizontal bar chart of the top side characters with
// their block counts and writes it to path.
func WriteCountsPDF(path string, counts []domain.CharacterCount, opt Options) error {
	rows := SelectTop(counts, opt)
	if len(rows) == 0 {
		return ErrNothingToPlot
	}
	title := opt.Title
	if title == "" {
		title = fmt.Sprintf("Top %d Side Character Dialogue Counts", len(rows))
	}
	pdf, tr := newDoc(title)

	top := margin + titleH
	areaH := pageH - top - margin
	slot := areaH / float64(len(rows))
	barH := slot * 0.7
	if barH > maxBarH {
		barH = maxBarH
	}
	maxW := pageW - 2*margin - labelW - valueW
	maxV := rows[0].Blocks
	if maxV <= 0 {
		maxV = 1
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	x0 := margin + labelW
	pdf.Line(x0, top, x0, top+slot*float64(len(rows)))
	for i, r := range rows {
		y := top + slot*float64(i) + (slot-barH)/2
		w := maxW * float64(r.Blocks) / float64(maxV)
		setFill(pdf, palette[i%len(palette)])
		pdf.Rect(x0, y, w, barH, "F")
		pdf.SetXY(margin, y)
		pdf.CellFormat(labelW-6, barH, tr(r.Character), "", 0, "R", false, 0, "")
		pdf.SetXY(x0+w+4, y)
		pdf.CellFormat(valueW, barH, fmt.Sprintf("%d", r.Blocks), "", 0, "L", false, 0, "")
	}
	return writeDoc(pdf, path)
}
