// Package font converts sign fonts into the ifnt glyph interchange format.
//
// An ifnt file is a short header followed by one block per glyph, in
// ascending code point order:
//
//	name: F07
//	font_number: 7
//	height: 7
//	char_spacing: 1
//	line_spacing: 3
//	version_id: 42
//
//	codepoint: 65 A
//	.XX.
//	X..X
//	...
//
// Each glyph row has exactly `width` cells; `X` is a lit pixel and `.` an
// unlit one. Glyph bitmaps are packed most significant bit first, row after
// row, with no padding between rows.
package font

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateCodePoint is returned when two glyphs share a code point
	ErrDuplicateCodePoint = errors.New("duplicate code point")
	// ErrBitmapSize is returned when a glyph bitmap does not fit its size
	ErrBitmapSize = errors.New("glyph bitmap size mismatch")
)

// Glyph is one character of a font
type Glyph struct {
	CodePoint uint16
	Width     uint8
	Bitmap    []byte
}

// Font is a fixed-height bitmap font
type Font struct {
	Number      uint8
	Name        string
	Height      uint8
	CharSpacing uint8
	LineSpacing uint8
	VersionID   uint16
	Glyphs      []Glyph
}

// BitmapLen returns the packed bitmap length for a glyph size
func BitmapLen(width, height uint8) int {
	return (int(width)*int(height) + 7) / 8
}

// Pixel reports whether pixel (x, y) of a packed bitmap is lit
func Pixel(bitmap []byte, width, x, y int) bool {
	bit := y*width + x
	return bitmap[bit/8]&(0x80>>(bit%8)) != 0
}

func setPixel(bitmap []byte, width, x, y int) {
	bit := y*width + x
	bitmap[bit/8] |= 0x80 >> (bit % 8)
}

// Sorted returns the glyphs in ascending code point order.
// The font is not modified.
func (f *Font) Sorted() ([]Glyph, error) {
	glyphs := make([]Glyph, len(f.Glyphs))
	copy(glyphs, f.Glyphs)
	sort.Slice(glyphs, func(i, j int) bool {
		return glyphs[i].CodePoint < glyphs[j].CodePoint
	})
	for i := 1; i < len(glyphs); i++ {
		if glyphs[i].CodePoint == glyphs[i-1].CodePoint {
			return nil, fmt.Errorf("%w: %d in font %q", ErrDuplicateCodePoint, glyphs[i].CodePoint, f.Name)
		}
	}
	return glyphs, nil
}

// Validate checks code point uniqueness and bitmap sizes
func (f *Font) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("font %d has no name", f.Number)
	}
	if _, err := f.Sorted(); err != nil {
		return err
	}
	for _, g := range f.Glyphs {
		if want := BitmapLen(g.Width, f.Height); len(g.Bitmap) != want {
			return fmt.Errorf("%w: font %q code point %d has %d bytes, want %d",
				ErrBitmapSize, f.Name, g.CodePoint, len(g.Bitmap), want)
		}
	}
	return nil
}
