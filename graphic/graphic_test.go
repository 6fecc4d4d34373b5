package graphic

import (
	"bytes"
	"image/color"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorScheme(t *testing.T) {
	cs, err := ParseColorScheme("color24Bit")
	require.NoError(t, err)
	assert.Equal(t, Color24Bit, cs)
	assert.Equal(t, "color24Bit", cs.String())

	_, err = ParseColorScheme("sepia")
	assert.Error(t, err)
}

func TestTransparentColor(t *testing.T) {
	c := TransparentColor(0x123456)
	assert.Equal(t, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xFF}, *c)
}

func TestRaster_Monochrome1Bit(t *testing.T) {
	g := &Graphic{Number: 1, Width: 4, Height: 2, Scheme: Monochrome1Bit, Bitmap: []byte{0x96}}
	img, err := g.Raster()
	require.NoError(t, err)

	// 1001 / 0110
	assert.Equal(t, amber, img.NRGBAAt(0, 0))
	assert.Equal(t, black, img.NRGBAAt(1, 0))
	assert.Equal(t, amber, img.NRGBAAt(3, 0))
	assert.Equal(t, amber, img.NRGBAAt(1, 1))
	assert.Equal(t, black, img.NRGBAAt(3, 1))
}

func TestRaster_ColorClassic(t *testing.T) {
	g := &Graphic{Number: 2, Width: 3, Height: 1, Scheme: ColorClassic, Bitmap: []byte{1, 5, 9}}
	img, err := g.Raster()
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 255, A: 0xFF}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 0xFF}, img.NRGBAAt(1, 0))
	assert.Equal(t, amber, img.NRGBAAt(2, 0))
}

func TestRaster_BitmapSize(t *testing.T) {
	g := &Graphic{Number: 3, Width: 2, Height: 2, Scheme: Color24Bit, Bitmap: make([]byte, 11)}
	_, err := g.Raster()
	assert.ErrorIs(t, err, ErrBitmapSize)
}

func TestPalette_NeverExceedsCapacity(t *testing.T) {
	p := NewPalette(MaxColors)
	p.SetThreshold(Threshold256)
	for r := 0; r < 256; r += 3 {
		for b := 0; b < 256; b += 5 {
			idx := p.Index(color.NRGBA{R: uint8(r), G: uint8(255 - r), B: uint8(b), A: 0xFF})
			assert.Less(t, idx, MaxColors)
		}
	}
	assert.LessOrEqual(t, p.Len(), MaxColors)
}

func TestPalette_FullMapsToNearest(t *testing.T) {
	p := NewPalette(2)
	p.SetEntry(color.NRGBA{A: 0xFF})
	p.SetEntry(color.NRGBA{R: 200, G: 200, B: 200, A: 0xFF})

	assert.Equal(t, 1, p.Index(color.NRGBA{R: 180, G: 190, B: 210, A: 0xFF}))
	assert.Equal(t, 0, p.Index(color.NRGBA{R: 20, A: 0xFF}))
	assert.Equal(t, 2, p.Len())
}

func TestIndexed_TransparentAtZero(t *testing.T) {
	bitmap := make([]byte, 0, 16*16*3)
	for i := 0; i < 16*16; i++ {
		bitmap = append(bitmap, uint8(i), uint8(i*7), uint8(255-i))
	}
	// the transparent color is not the first pixel
	tc := TransparentColor(0x00FF00)
	copy(bitmap[30:33], []byte{0x00, 0xFF, 0x00})

	g := &Graphic{Number: 4, Width: 16, Height: 16, Scheme: Color24Bit, Transparent: tc, Bitmap: bitmap}
	img, err := g.Indexed()
	require.NoError(t, err)

	assert.LessOrEqual(t, len(img.Palette), MaxColors)
	_, _, _, a := img.Palette[0].RGBA()
	assert.Zero(t, a)
	assert.Equal(t, color.RGBA{G: 0xFF}, img.Palette[0])
	assert.Equal(t, uint8(0), img.ColorIndexAt(10, 0))
	assert.NotEqual(t, uint8(0), img.ColorIndexAt(0, 0))
}

func TestEncodeGIF(t *testing.T) {
	g := &Graphic{
		Number:      5,
		Width:       4,
		Height:      2,
		Scheme:      ColorClassic,
		Transparent: TransparentColor(0x000000),
		Bitmap:      []byte{0, 1, 2, 3, 0, 0, 9, 9},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeGIF(&buf, g))

	img, err := gif.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a, "black pixels are transparent")
	_, _, _, a = img.At(1, 0).RGBA()
	assert.NotZero(t, a)
}

func TestEncodeGIF_TransparentColorInTable(t *testing.T) {
	g := &Graphic{
		Number:      6,
		Width:       2,
		Height:      1,
		Scheme:      Color24Bit,
		Transparent: TransparentColor(0x123456),
		Bitmap:      []byte{0x12, 0x34, 0x56, 0xFF, 0xFF, 0xFF},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeGIF(&buf, g))
	raw := buf.Bytes()

	// header (6) + logical screen descriptor (7), then the global color table
	require.Greater(t, len(raw), 16)
	require.NotZero(t, raw[10]&0x80, "global color table present")
	assert.Equal(t, []byte{0x12, 0x34, 0x56}, raw[13:16])

	img, err := gif.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a)
}
