package report

import (
	"fmt"
	"html"
	"html/template"
	"math"
	"strings"
)

const (
	pieSize   = 220
	pieRadius = 100
)

// Slice is one wedge of the pie chart.
type Slice struct {
	Label string
	Color string
	// Path is the SVG path; empty when the slice is a full circle.
	Path string
	Full bool
}

// PieSlices lays out wedges clockwise from -90°, each spanning 360° × percentage/100.
// Categories with no share are skipped; a single 100% category becomes a full circle.
func PieSlices(categories []Category) []Slice {
	cx, cy, r := float64(pieSize)/2, float64(pieSize)/2, float64(pieRadius)

	var slices []Slice
	angle := -90.0
	for _, c := range categories {
		if c.Percentage <= 0 {
			continue
		}
		sweep := 360 * c.Percentage / 100
		if sweep >= 359.99 {
			slices = append(slices, Slice{Label: c.Name, Color: c.Color, Full: true})
			angle += sweep
			continue
		}

		start, end := angle*math.Pi/180, (angle+sweep)*math.Pi/180
		x1, y1 := cx+r*math.Cos(start), cy+r*math.Sin(start)
		x2, y2 := cx+r*math.Cos(end), cy+r*math.Sin(end)
		largeArc := 0
		if sweep > 180 {
			largeArc = 1
		}

		slices = append(slices, Slice{
			Label: c.Name,
			Color: c.Color,
			Path: fmt.Sprintf("M %s %s L %s %s A %s %s 0 %d 1 %s %s Z",
				num(cx), num(cy), num(x1), num(y1), num(r), num(r), largeArc, num(x2), num(y2)),
		})
		angle += sweep
	}
	return slices
}

// PieSVG renders slices as an inline SVG element.
func PieSVG(slices []Slice) template.HTML {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`,
		pieSize, pieSize, pieSize, pieSize)
	for _, s := range slices {
		title := html.EscapeString(s.Label)
		if s.Full {
			fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%d" fill="%s"><title>%s</title></circle>`,
				num(pieSize/2), num(pieSize/2), pieRadius, html.EscapeString(s.Color), title)
			continue
		}
		fmt.Fprintf(&b, `<path d="%s" fill="%s" stroke="#ffffff" stroke-width="1"><title>%s</title></path>`,
			s.Path, html.EscapeString(s.Color), title)
	}
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}

// num formats a coordinate with at most two decimals.
func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		return "0"
	}
	return s
}
