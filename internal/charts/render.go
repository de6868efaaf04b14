// Package charts renders projection figures as static images.
package charts

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"sales-dashboard/internal/models"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch

	tickFormat = "Jan 2006"
)

var (
	titleColor = color.RGBA{R: 0x71, G: 0x71, B: 0x71, A: 0xff}
)

// RenderPNG draws fig as a line chart. A figure without points renders its axes and title only.
func RenderPNG(w io.Writer, fig models.Figure, width, height vg.Length) error {
	p, err := newPlot(fig)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("prepare png: %w", err)
	}

	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func newPlot(fig models.Figure) (*plot.Plot, error) {
	if len(fig.X) != len(fig.Y) {
		return nil, fmt.Errorf("figure %q: %d x values for %d y values", fig.Title, len(fig.X), len(fig.Y))
	}

	p := plot.New()
	p.Title.Text = fig.Title
	p.Title.TextStyle.Color = titleColor
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Tick.Marker = plot.TimeTicks{Format: tickFormat}
	p.Y.Tick.Marker = prefixTicks{prefix: fig.TickPrefix}
	p.Add(plotter.NewGrid())

	if len(fig.X) == 0 {
		return p, nil
	}

	points := make(plotter.XYs, len(fig.X))
	for i, x := range fig.X {
		day, err := time.Parse(models.DateLayout, x)
		if err != nil {
			return nil, fmt.Errorf("figure %q: point %d: %w", fig.Title, i, err)
		}
		points[i].X = float64(day.Unix())
		points[i].Y = fig.Y[i]
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return nil, fmt.Errorf("figure %q: %w", fig.Title, err)
	}
	line.Color = parseHexColor(fig.Color)
	line.Width = vg.Points(1.5)
	p.Add(line)

	return p, nil
}

// prefixTicks labels the default ticks with a unit prefix such as "$".
type prefixTicks struct {
	prefix string
}

func (t prefixTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	if t.prefix == "" {
		return ticks
	}
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = t.prefix + ticks[i].Label
		}
	}
	return ticks
}

func parseHexColor(hex string) color.Color {
	if len(hex) != 7 || hex[0] != '#' {
		return color.Black
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
