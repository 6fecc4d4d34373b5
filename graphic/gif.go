package graphic

import (
	"image"
	"image/color"
	"image/gif"
	"io"

	"github.com/rs/zerolog/log"
)

// Indexed builds the palette and index raster for a graphic.
// A declared transparent color always occupies palette index 0.
func (g *Graphic) Indexed() (*image.Paletted, error) {
	raster, err := g.Raster()
	if err != nil {
		return nil, err
	}

	palette := NewPalette(MaxColors)
	if g.Transparent != nil {
		palette.SetEntry(*g.Transparent)
	}
	palette.SetThreshold(Threshold256)
	indices := palette.MakeIndexed(raster)

	colors := make(color.Palette, palette.Len())
	for i := range colors {
		colors[i] = palette.Entry(i)
	}
	if g.Transparent != nil {
		// the GIF encoder flags the zero alpha entry as transparent and
		// copies RGBA entries into the color table without premultiplying
		tc := *g.Transparent
		colors[0] = color.RGBA{R: tc.R, G: tc.G, B: tc.B}
	}

	log.Debug().
		Uint8("number", g.Number).
		Int("colors", len(colors)).
		Bool("transparent", g.Transparent != nil).
		Msg("Built graphic palette")

	img := image.NewPaletted(raster.Bounds(), colors)
	copy(img.Pix, indices)
	return img, nil
}

// EncodeGIF writes a graphic as a single frame GIF
func EncodeGIF(w io.Writer, g *Graphic) error {
	img, err := g.Indexed()
	if err != nil {
		return err
	}
	return gif.Encode(w, img, nil)
}
