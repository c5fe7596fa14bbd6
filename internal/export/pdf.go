// Package export writes a room's shapes to PDF.
package export

import (
	"fmt"
	"image/color"
	"io"

	"github.com/jung-kurt/gofpdf"

	"RoomBoard/internal/render"
	"RoomBoard/internal/state"
)

// PDF is a render.Surface backed by a single gofpdf page. One canvas pixel
// maps to one point.
type PDF struct {
	pdf           *gofpdf.Fpdf
	width, height float64
}

var _ render.Surface = (*PDF)(nil)

func NewPDF(width, height, lineWidth float64) *PDF {
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	p.SetTitle("RoomBoard export", true)
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()
	p.SetLineWidth(lineWidth)
	p.SetLineCapStyle("round")
	return &PDF{pdf: p, width: width, height: height}
}

func rgb(c color.Color) (int, int, int) {
	r, g, b, _ := c.RGBA()
	return int(r >> 8), int(g >> 8), int(b >> 8)
}

func (p *PDF) Clear(bg color.Color) {
	p.pdf.SetFillColor(rgb(bg))
	p.pdf.Rect(0, 0, p.width, p.height, "F")
}

func (p *PDF) StrokeLine(a, b state.Point, col color.Color) {
	p.pdf.SetDrawColor(rgb(col))
	p.pdf.Line(a.X, a.Y, b.X, b.Y)
}

func (p *PDF) StrokeRect(area state.Area, col color.Color) {
	p.pdf.SetDrawColor(rgb(col))
	p.pdf.Rect(area.X, area.Y, area.Width, area.Height, "D")
}

func (p *PDF) StrokeCircle(center state.Point, radius float64, col color.Color) {
	p.pdf.SetDrawColor(rgb(col))
	p.pdf.Circle(center.X, center.Y, radius, "D")
}

func (p *PDF) StrokeDashedRect(area state.Area, col color.Color) {
	p.pdf.SetDashPattern([]float64{6, 6}, 0)
	p.StrokeRect(area, col)
	p.pdf.SetDashPattern([]float64{}, 0)
}

// Output writes the document and closes it.
func (p *PDF) Output(w io.Writer) error {
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// WritePDF renders shapes onto a width x height page.
func WritePDF(w io.Writer, shapes []state.Shape, style render.Style, width, height float64) error {
	surface := NewPDF(width, height, 1)
	render.New(style).Render(surface, render.Scene{Shapes: shapes})
	return surface.Output(w)
}
