package rimg

// xterm-256 palette quantization.
//
// Colors 0-15 are system colors and vary by terminal, so they are never
// produced. Colors 16-231 form a 6x6x6 RGB cube and 232-255 a 24-step
// grayscale ramp.

// grayTolerance is the maximum channel spread for a color to be treated
// as gray and mapped onto the grayscale ramp.
const grayTolerance = 8

// QuantizeColor maps a 24-bit RGB triple to the nearest xterm-256 palette
// index. Pure function: identical inputs always yield identical indices.
func QuantizeColor(r, g, b uint8) uint8 {
	maxDiff := absDiff(r, g)
	if d := absDiff(r, b); d > maxDiff {
		maxDiff = d
	}
	if d := absDiff(g, b); d > maxDiff {
		maxDiff = d
	}
	if maxDiff < grayTolerance {
		// Grayscale ramp: linear interpolation of luminance over the
		// 24 gray steps.
		gray := (int(r) + int(g) + int(b)) / 3
		idx := gray * 24 / 256
		if idx > 23 {
			idx = 23
		}
		return uint8(232 + idx)
	}

	return 16 + 36*channelTo6(r) + 6*channelTo6(g) + channelTo6(b)
}

// channelTo6 maps 0-255 to one of the cube levels 0, 95, 135, 175, 215,
// 255. Thresholds sit midway between adjacent levels.
func channelTo6(v uint8) uint8 {
	switch {
	case v < 48:
		return 0
	case v < 115:
		return 1
	case v < 155:
		return 2
	case v < 195:
		return 3
	case v < 235:
		return 4
	default:
		return 5
	}
}

// PaletteRGB converts a palette index back to its approximate RGB value.
func PaletteRGB(index uint8) (r, g, b uint8) {
	switch {
	case index >= 232:
		level := (index-232)*10 + 8
		return level, level, level
	case index >= 16:
		idx := index - 16
		return channel6ToRGB(idx / 36), channel6ToRGB((idx % 36) / 6), channel6ToRGB(idx % 6)
	default:
		// System colors vary by terminal; return a neutral gray.
		return 128, 128, 128
	}
}

func channel6ToRGB(level uint8) uint8 {
	levels := [6]uint8{0, 95, 135, 175, 215, 255}
	if level > 5 {
		return 0
	}
	return levels[level]
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
