/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"mapedit/internal/feature"
	"mapedit/internal/geometry"
	"mapedit/internal/input"
)

// PDFOptions controls printing. Units are points; the page is the view size
// plus Margin on every side.
type PDFOptions struct {
	Title  string
	Margin float64
	Theme  Theme
	// LabelKey names the attribute printed next to features.
	LabelKey string
	// Footer prints the title, date and feature count below the map.
	Footer bool
}

// PrintPDF writes the non-sketch features of fs to a single page PDF at path.
func PrintPDF(path string, fs []*feature.Feature, view input.Viewport, opt PDFOptions) error {
	theme := opt.Theme
	if theme == nil {
		theme = DefaultTheme()
	}
	m := opt.Margin
	pageW := float64(view.Width) + 2*m
	pageH := float64(view.Height) + 2*m
	if opt.Footer {
		pageH += 24
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	pdf.SetAuthor("mapedit", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 9)

	toPage := func(p geometry.Pt) gofpdf.PointType {
		px := view.ToPixel(p)
		return gofpdf.PointType{X: px.X + m, Y: px.Y + m}
	}
	pdf.ClipRect(m, m, float64(view.Width), float64(view.Height), false)
	count := 0
	for _, f := range fs {
		if f == nil || f.Sketch || f.Geometry == nil {
			continue
		}
		count++
		printGeometry(pdf, f.Geometry, toPage, theme.For(f))
		if opt.LabelKey != "" {
			if s, ok := f.Attributes[opt.LabelKey].(string); ok && s != "" {
				c := toPage(f.Geometry.Bounds().Center())
				pdf.SetTextColor(0, 0, 0)
				pdf.Text(c.X-pdf.GetStringWidth(s)/2, c.Y+3, s)
			}
		}
	}
	pdf.ClipEnd()

	if opt.Footer {
		pdf.SetTextColor(64, 64, 64)
		footer := fmt.Sprintf("%s  %s  %d features", opt.Title, time.Now().Format("2006-01-02"), count)
		pdf.Text(m, pageH-m/2-6, footer)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func printGeometry(pdf *gofpdf.Fpdf, g geometry.Geometry, toPage func(geometry.Pt) gofpdf.PointType, st Style) {
	setDrawColor(pdf, st.Stroke.Color)
	setFillColor(pdf, st.Fill.Color)
	pdf.SetLineWidth(float64(max(st.Stroke.Width, 0.5)))
	style := ""
	if st.Fill.Enabled {
		style += "F"
	}
	if st.Stroke.Enabled {
		style += "D"
	}
	if style == "" {
		return
	}
	points := func(c *geometry.Composite) []gofpdf.PointType {
		var out []gofpdf.PointType
		for _, p := range geometry.Points(c) {
			out = append(out, toPage(p.Pt()))
		}
		return out
	}
	switch v := g.(type) {
	case *geometry.Point:
		c := toPage(v.Pt())
		pdf.Circle(c.X, c.Y, float64(st.PointSize)/2, style)
	case *geometry.Composite:
		switch v.Kind() {
		case geometry.KindLineString:
			pts := points(v)
			for i := 1; i < len(pts); i++ {
				pdf.Line(pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y)
			}
		case geometry.KindLinearRing:
			pdf.Polygon(points(v), "D")
		case geometry.KindPolygon:
			// holes are outlined over the fill
			for i, r := range v.Components() {
				if i == 0 {
					pdf.Polygon(points(r.(*geometry.Composite)), style)
					continue
				}
				pdf.Polygon(points(r.(*geometry.Composite)), "D")
			}
		default:
			for _, ch := range v.Components() {
				printGeometry(pdf, ch, toPage, st)
			}
		}
	}
}

func setDrawColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
