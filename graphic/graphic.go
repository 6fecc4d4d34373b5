// Package graphic converts sign graphics into palette GIF images.
package graphic

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrBitmapSize is returned when a bitmap does not match its dimensions
var ErrBitmapSize = errors.New("graphic bitmap size mismatch")

// ColorScheme describes how a graphic bitmap encodes its pixels
type ColorScheme int

const (
	Monochrome1Bit ColorScheme = iota
	Monochrome8Bit
	ColorClassic
	Color24Bit
)

var schemeNames = map[string]ColorScheme{
	"monochrome1Bit": Monochrome1Bit,
	"monochrome8Bit": Monochrome8Bit,
	"colorClassic":   ColorClassic,
	"color24Bit":     Color24Bit,
}

// ParseColorScheme looks up a color scheme by its database name
func ParseColorScheme(name string) (ColorScheme, error) {
	if cs, ok := schemeNames[name]; ok {
		return cs, nil
	}
	return 0, fmt.Errorf("unknown color scheme %q", name)
}

func (cs ColorScheme) String() string {
	for name, v := range schemeNames {
		if v == cs {
			return name
		}
	}
	return fmt.Sprintf("ColorScheme(%d)", int(cs))
}

// bitmapLen returns the expected bitmap length for a pixel count
func (cs ColorScheme) bitmapLen(pixels int) int {
	switch cs {
	case Monochrome1Bit:
		return (pixels + 7) / 8
	case Color24Bit:
		return pixels * 3
	default:
		return pixels
	}
}

var (
	black = color.NRGBA{A: 0xFF}
	amber = color.NRGBA{R: 255, G: 208, B: 0, A: 0xFF}

	classic = [...]color.NRGBA{
		black,
		{R: 255, A: 0xFF},                 // red
		{R: 255, G: 255, A: 0xFF},         // yellow
		{G: 255, A: 0xFF},                 // green
		{G: 255, B: 255, A: 0xFF},         // cyan
		{B: 255, A: 0xFF},                 // blue
		{R: 255, B: 255, A: 0xFF},         // magenta
		{R: 255, G: 255, B: 255, A: 0xFF}, // white
		{R: 255, G: 165, A: 0xFF},         // orange
		amber,
	}
)

// Graphic is a sign graphic as stored in the database
type Graphic struct {
	Number      uint8
	Name        string
	Height      uint8
	Width       uint16
	Scheme      ColorScheme
	Transparent *color.NRGBA
	Bitmap      []byte
}

// TransparentColor unpacks a 24-bit packed RGB value
func TransparentColor(packed int32) *color.NRGBA {
	return &color.NRGBA{
		R: uint8(packed >> 16),
		G: uint8(packed >> 8),
		B: uint8(packed),
		A: 0xFF,
	}
}

// Validate checks that the bitmap matches the graphic dimensions
func (g *Graphic) Validate() error {
	pixels := int(g.Width) * int(g.Height)
	if pixels == 0 {
		return fmt.Errorf("%w: graphic %d is empty", ErrBitmapSize, g.Number)
	}
	if want := g.Scheme.bitmapLen(pixels); len(g.Bitmap) != want {
		return fmt.Errorf("%w: graphic %d has %d bytes, want %d",
			ErrBitmapSize, g.Number, len(g.Bitmap), want)
	}
	return nil
}

// Raster decodes the bitmap into a full color image
func (g *Graphic) Raster() (*image.NRGBA, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	width, height := int(g.Width), int(g.Height)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, g.pixel(y*width+x))
		}
	}
	return img, nil
}

func (g *Graphic) pixel(i int) color.NRGBA {
	switch g.Scheme {
	case Monochrome1Bit:
		if g.Bitmap[i/8]&(0x80>>(i%8)) != 0 {
			return amber
		}
		return black
	case Monochrome8Bit:
		v := uint16(g.Bitmap[i])
		return color.NRGBA{
			R: uint8(uint16(amber.R) * v / 255),
			G: uint8(uint16(amber.G) * v / 255),
			B: uint8(uint16(amber.B) * v / 255),
			A: 0xFF,
		}
	case ColorClassic:
		if v := int(g.Bitmap[i]); v < len(classic) {
			return classic[v]
		}
		return black
	default:
		p := g.Bitmap[i*3 : i*3+3]
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 0xFF}
	}
}
