package frame

import (
	"image"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/layout"
)

// Placement is where each wrapped line lands on the canvas
type Placement struct {
	LineHeight  int           `json:"line_height"`
	TotalHeight int           `json:"total_height"`
	StartY      int           `json:"start_y"`
	Origins     []image.Point `json:"origins"` // top-left of each line box
}

// MaxLineWidth is the wrap bound for a canvas: floor(ratio * canvasWidth)
func MaxLineWidth(canvasWidth int, ratio float64) int {
	return int(float64(canvasWidth) * ratio)
}

// Place centers the block vertically and each line horizontally.
// StartY goes negative when the block is taller than the canvas.
func Place(lines []layout.Line, canvasWidth, canvasHeight, fontSize, lineSpacing int) Placement {
	p := Placement{LineHeight: fontSize + lineSpacing}
	p.TotalHeight = len(lines) * p.LineHeight
	p.StartY = floorDiv(canvasHeight-p.TotalHeight, 2)

	p.Origins = make([]image.Point, len(lines))
	for i, line := range lines {
		p.Origins[i] = image.Point{
			X: floorDiv(canvasWidth-line.Width, 2),
			Y: p.StartY + i*p.LineHeight,
		}
	}
	return p
}

// floorDiv rounds toward negative infinity, unlike Go's / operator
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
