package graphic

import (
	"image"
	"image/color"
)

// MaxColors is the largest palette a GIF color table can hold
const MaxColors = 256

// ThresholdFunc returns the per-channel difference allowed when matching a
// color against a palette which already holds n entries.
type ThresholdFunc func(n int) (r, g, b uint8)

// Threshold256 keeps an RGB palette within 256 entries by loosening the
// match as the palette fills: red and green keep 3 bits, blue keeps 4.
func Threshold256(n int) (r, g, b uint8) {
	v := uint8(n & 0xFF)
	return v >> 5, v >> 5, v >> 4
}

// Palette is a bounded, insertion ordered color table
type Palette struct {
	capacity  int
	entries   []color.NRGBA
	threshold ThresholdFunc
}

// NewPalette creates an empty palette holding at most capacity colors
func NewPalette(capacity int) *Palette {
	if capacity <= 0 || capacity > MaxColors {
		capacity = MaxColors
	}
	return &Palette{
		capacity:  capacity,
		threshold: func(int) (uint8, uint8, uint8) { return 0, 0, 0 },
	}
}

// SetThreshold replaces the color matching function
func (p *Palette) SetThreshold(fn ThresholdFunc) {
	p.threshold = fn
}

// SetEntry appends an exact color and returns its index.
// An existing identical entry is reused.
func (p *Palette) SetEntry(c color.NRGBA) int {
	c.A = 0xFF
	for i, e := range p.entries {
		if e == c {
			return i
		}
	}
	if len(p.entries) >= p.capacity {
		return p.nearest(c)
	}
	p.entries = append(p.entries, c)
	return len(p.entries) - 1
}

// Len returns the number of palette entries
func (p *Palette) Len() int {
	return len(p.entries)
}

// Entry returns the color at index i
func (p *Palette) Entry(i int) color.NRGBA {
	return p.entries[i]
}

// Index finds the entry matching c within the current threshold, adding c
// when nothing matches. A full palette maps c to its nearest entry.
func (p *Palette) Index(c color.NRGBA) int {
	tr, tg, tb := p.threshold(len(p.entries))
	for i, e := range p.entries {
		if diff(e.R, c.R) <= tr && diff(e.G, c.G) <= tg && diff(e.B, c.B) <= tb {
			return i
		}
	}
	return p.SetEntry(c)
}

func (p *Palette) nearest(c color.NRGBA) int {
	best, bestDist := 0, -1
	for i, e := range p.entries {
		dr, dg, db := int(diff(e.R, c.R)), int(diff(e.G, c.G)), int(diff(e.B, c.B))
		if d := dr*dr + dg*dg + db*db; bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// MakeIndexed converts an image into a raster of palette indices
func (p *Palette) MakeIndexed(img *image.NRGBA) []uint8 {
	b := img.Bounds()
	indices := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			indices = append(indices, uint8(p.Index(img.NRGBAAt(x, y))))
		}
	}
	return indices
}

func diff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
