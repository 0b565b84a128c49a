package layout

import (
	"fmt"
	"math"
)

// Bubble diameter bounds in pixels.
const (
	MinBubbleSize = 24.0
	MaxBubbleSize = 48.0
)

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// Hex renders the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	// LowColor is used for a score of 0 (#a855f7).
	LowColor = RGB{R: 168, G: 85, B: 247}
	// HighColor is used for a score of 1 (#22c55e).
	HighColor = RGB{R: 34, G: 197, B: 94}
)

// BubbleSize maps a score to a diameter in [MinBubbleSize, MaxBubbleSize].
func BubbleSize(score float64) float64 {
	return MinBubbleSize + clamp(score)*(MaxBubbleSize-MinBubbleSize)
}

// BubbleColor interpolates linearly from LowColor to HighColor per channel,
// rounding half away from zero.
func BubbleColor(score float64) RGB {
	s := clamp(score)
	return RGB{
		R: lerp(LowColor.R, HighColor.R, s),
		G: lerp(LowColor.G, HighColor.G, s),
		B: lerp(LowColor.B, HighColor.B, s),
	}
}

func lerp(lo, hi uint8, t float64) uint8 {
	return uint8(math.Round(float64(lo) + (float64(hi)-float64(lo))*t))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
