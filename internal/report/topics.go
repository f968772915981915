/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package report

import (
	"fmt"

	"scriptcorpus/internal/analyze"
)

// WriteTopicsPDF draws a grouped bar chart of annotated line counts per topic,
// one series per character, and writes it to path.
func WriteTopicsPDF(path string, d analyze.Distribution, topics map[int]string, title string) error {
	if len(d.Topics) == 0 || len(d.Characters) == 0 {
		return ErrNothingToPlot
	}
	maxV := 0
	for _, row := range d.Counts {
		for _, v := range row {
			if v > maxV {
				maxV = v
			}
		}
	}
	if maxV == 0 {
		return ErrNothingToPlot
	}
	if title == "" {
		title = "Topic Distribution by Character"
	}
	pdf, tr := newDoc(title)

	const (
		axisLabelH = 70.0
		legendW    = 110.0
	)
	left := margin + 30
	top := margin + titleH
	bottom := pageH - margin - axisLabelH
	right := pageW - margin - legendW
	plotH := bottom - top
	group := (right - left) / float64(len(d.Topics))
	barW := group * 0.8 / float64(len(d.Characters))

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(left, top, left, bottom)
	pdf.Line(left, bottom, right, bottom)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetXY(margin, top)
	pdf.CellFormat(28, 10, fmt.Sprintf("%d", maxV), "", 0, "R", false, 0, "")
	pdf.SetXY(margin, bottom-10)
	pdf.CellFormat(28, 10, "0", "", 0, "R", false, 0, "")

	for t, id := range d.Topics {
		gx := left + group*float64(t) + group*0.1
		for c := range d.Characters {
			v := d.Counts[c][t]
			h := plotH * float64(v) / float64(maxV)
			setFill(pdf, palette[c%len(palette)])
			pdf.Rect(gx+barW*float64(c), bottom-h, barW, h, "F")
		}
		// rotated topic label under each group
		pdf.TransformBegin()
		lx, ly := left+group*float64(t)+group/2, bottom+6
		pdf.TransformRotate(45, lx, ly)
		pdf.SetXY(lx-120, ly)
		pdf.CellFormat(120, 10, tr(analyze.Label(topics, id)), "", 0, "R", false, 0, "")
		pdf.TransformEnd()
	}

	pdf.SetFont("Helvetica", "", 10)
	for c, name := range d.Characters {
		y := top + float64(c)*16
		setFill(pdf, palette[c%len(palette)])
		pdf.Rect(right+12, y+2, 10, 10, "F")
		pdf.SetXY(right+26, y)
		pdf.CellFormat(legendW-26, 14, tr(name), "", 0, "L", false, 0, "")
	}
	return writeDoc(pdf, path)
}
