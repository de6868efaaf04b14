package charts

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"sales-dashboard/internal/models"
)

func TestRenderPNG(t *testing.T) {
	fig := models.Figure{
		Title:      "Average Price",
		Color:      "#17B897",
		TickPrefix: "$",
		X:          []string{"2015-01-04", "2015-01-11", "2015-01-18"},
		Y:          []float64{1.05, 1.10, 0.98},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, fig, 4*vg.Inch, 2*vg.Inch))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestRenderPNG_EmptyFigure(t *testing.T) {
	fig := models.Figure{Title: "Sales Volume", Color: "#E12D39", X: []string{}, Y: []float64{}}

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, fig, DefaultWidth, DefaultHeight))

	_, err := png.Decode(&buf)
	assert.NoError(t, err)
}

func TestRenderPNG_BadFigure(t *testing.T) {
	var buf bytes.Buffer

	err := RenderPNG(&buf, models.Figure{X: []string{"2015-01-04"}, Y: nil}, DefaultWidth, DefaultHeight)
	assert.Error(t, err)

	err = RenderPNG(&buf, models.Figure{X: []string{"04/01/2015"}, Y: []float64{1}}, DefaultWidth, DefaultHeight)
	assert.Error(t, err)
}

func TestPrefixTicks(t *testing.T) {
	ticks := prefixTicks{prefix: "$"}.Ticks(0, 2)
	require.NotEmpty(t, ticks)

	for _, tick := range ticks {
		if tick.Label != "" {
			assert.Equal(t, "$", tick.Label[:1])
		}
	}
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x17, G: 0xB8, B: 0x97, A: 0xff}, parseHexColor("#17B897"))
	assert.Equal(t, color.Black, parseHexColor("teal"))
}
