package renderer

import (
	"github.com/lucasb-eyer/go-colorful"

	"vtcore/color"
)

// grid256 and grey256 are the 6x6x6 cube and 24-step grey ramp xterm uses
// for its 256-color palette (§4.2).
var grid256 = [6]uint8{0, 95, 135, 175, 215, 255}

func grey256(i int) uint8 { return uint8(8 + 10*i) } // 8, 18, ..., 238 (24 values)

// grid88 and grey88 are the 4x4x4 cube and 8-step grey ramp for 88-color
// terminals (§4.2).
var grid88 = [4]uint8{0, 139, 205, 255}
var grey88 = [8]uint8{46, 92, 115, 139, 162, 185, 208, 231}

// sqDist computes the sum-of-squares RGB distance spec.md §4.2 requires for
// ranking palette candidates. go-colorful's Euclidean DistanceRgb is used
// underneath and squared back, so the module's one real dependency for
// color-distance math is exercised rather than hand-rolled arithmetic.
func sqDist(r1, g1, b1, r2, g2, b2 uint8) float64 {
	c1 := colorful.Color{R: float64(r1) / 255, G: float64(g1) / 255, B: float64(b1) / 255}
	c2 := colorful.Color{R: float64(r2) / 255, G: float64(g2) / 255, B: float64(b2) / 255}
	d := c1.DistanceRgb(c2)
	return d * d
}

// nearestCube256 finds the closest 6x6x6 cube index and its sum-of-squares
// distance.
func nearestCube256(r, g, b uint8) (idx int, dist float64) {
	best, bestIdx := -1.0, 0
	for ri, rv := range grid256 {
		for gi, gv := range grid256 {
			for bi, bv := range grid256 {
				d := sqDist(r, g, b, rv, gv, bv)
				if best < 0 || d < best {
					best = d
					bestIdx = 16 + 36*ri + 6*gi + bi
				}
			}
		}
	}
	return bestIdx, best
}

// nearestGrey256 finds the closest grey-ramp index (232..255) and distance.
func nearestGrey256(r, g, b uint8) (idx int, dist float64) {
	best, bestIdx := -1.0, 232
	for i := 0; i < 24; i++ {
		v := grey256(i)
		d := sqDist(r, g, b, v, v, v)
		if best < 0 || d < best {
			best = d
			bestIdx = 232 + i
		}
	}
	return bestIdx, best
}

// Quantize256 maps an RGB color to the nearest xterm-256 palette entry,
// trying both the color cube and the grey ramp and keeping whichever has
// the smaller sum-of-squares distance (§4.2).
func Quantize256(c color.Color) color.Color {
	r, g, b := c.RGB()
	cubeIdx, cubeDist := nearestCube256(r, g, b)
	greyIdx, greyDist := nearestGrey256(r, g, b)
	if greyDist < cubeDist {
		return color.Index(uint8(greyIdx))
	}
	return color.Index(uint8(cubeIdx))
}

// Quantize88 maps an RGB color to the nearest 88-color palette entry,
// considering the cube and grey ramp jointly (§4.2).
func Quantize88(c color.Color) color.Color {
	r, g, b := c.RGB()
	best, bestIdx := -1.0, 0
	for ri, rv := range grid88 {
		for gi, gv := range grid88 {
			for bi, bv := range grid88 {
				d := sqDist(r, g, b, rv, gv, bv)
				if best < 0 || d < best {
					best = d
					bestIdx = 16 + 16*ri + 4*gi + bi
				}
			}
		}
	}
	for i, v := range grey88 {
		d := sqDist(r, g, b, v, v, v)
		if d < best {
			best = d
			bestIdx = 80 + i
		}
	}
	return color.Index(uint8(bestIdx))
}

// effectiveColor resolves c against the renderer's active capability/
// profile tier: truecolor passes through unchanged; otherwise an RGB value
// is quantized to the nearest palette entry for the given color count.
func effectiveColor(c color.Color, useTruecolor bool, colorCount int) color.Color {
	if c.TagOf() != color.RGB || useTruecolor {
		return c
	}
	if colorCount <= 88 {
		return Quantize88(c)
	}
	return Quantize256(c)
}
