package common

import (
	"image/color"
)

// NeutralColorID is reserved; players are assigned color ids starting at 1.
const NeutralColorID = 0

// PlayerColors maps a color id to its display color. Index 0 is the
// neutral gray.
var PlayerColors = []color.RGBA{
	{120, 120, 120, 255}, // Neutral - gray
	{200, 50, 50, 255},   // Red
	{50, 100, 200, 255},  // Blue
	{50, 200, 50, 255},   // Green
	{200, 200, 50, 255},  // Yellow
	{200, 50, 200, 255},  // Purple
	{50, 200, 200, 255},  // Teal
	{230, 140, 30, 255},  // Orange
	{140, 80, 40, 255},   // Brown
	{250, 120, 180, 255}, // Pink
	{130, 130, 230, 255}, // Indigo
	{90, 160, 90, 255},   // Olive
	{170, 170, 170, 255}, // Silver
}

// MaxColorNum is the number of assignable player colors.
var MaxColorNum = len(PlayerColors) - 1

// ColorOf returns the display color for a color id, falling back to
// neutral for unknown ids.
func ColorOf(id int) color.RGBA {
	if id < 0 || id >= len(PlayerColors) {
		return PlayerColors[NeutralColorID]
	}
	return PlayerColors[id]
}
