package font

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFont() *Font {
	return &Font{
		Number:      7,
		Name:        "F07",
		Height:      3,
		CharSpacing: 1,
		LineSpacing: 2,
		VersionID:   42,
		// deliberately out of order
		Glyphs: []Glyph{
			// 0x41 is 3 wide: X.X / .X. / XXX => 101 010 111 => 1010 1011 1(000 0000)
			{CodePoint: 0x41, Width: 3, Bitmap: []byte{0xAB, 0x80}},
			// 0x20 is 2 wide and blank
			{CodePoint: 0x20, Width: 2, Bitmap: []byte{0x00}},
		},
	}
}

func TestWrite_AscendingCodePoints(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testFont()))

	out := buf.String()
	space := strings.Index(out, "codepoint: 32")
	letter := strings.Index(out, "codepoint: 65 A")
	require.NotEqual(t, -1, space)
	require.NotEqual(t, -1, letter)
	assert.Less(t, space, letter)

	assert.True(t, strings.HasPrefix(out, "name: F07\nfont_number: 7\nheight: 3\n"))
	assert.Contains(t, out, "codepoint: 65 A\nX.X\n.X.\nXXX\n")
	assert.Contains(t, out, "codepoint: 32\n..\n..\n..\n")
}

func TestRoundTrip_PreservesGlyphs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testFont()))

	f, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, "F07", f.Name)
	assert.Equal(t, uint8(7), f.Number)
	assert.Equal(t, uint8(3), f.Height)
	assert.Equal(t, uint16(42), f.VersionID)
	require.Len(t, f.Glyphs, 2)

	assert.Equal(t, Glyph{CodePoint: 0x20, Width: 2, Bitmap: []byte{0x00}}, f.Glyphs[0])
	assert.Equal(t, Glyph{CodePoint: 0x41, Width: 3, Bitmap: []byte{0xAB, 0x80}}, f.Glyphs[1])
}

func TestRoundTrip_ZeroWidthGlyph(t *testing.T) {
	f := testFont()
	f.Glyphs = append(f.Glyphs, Glyph{CodePoint: 0x7F, Width: 0, Bitmap: []byte{}})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	assert.Contains(t, buf.String(), "codepoint: 127\n\n\n\n")

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got.Glyphs, 3)
	assert.Equal(t, Glyph{CodePoint: 0x41, Width: 3, Bitmap: []byte{0xAB, 0x80}}, got.Glyphs[1])
	assert.Equal(t, uint16(0x7F), got.Glyphs[2].CodePoint)
	assert.Zero(t, got.Glyphs[2].Width)
	assert.Empty(t, got.Glyphs[2].Bitmap)
}

func TestWrite_DuplicateCodePoint(t *testing.T) {
	f := testFont()
	f.Glyphs = append(f.Glyphs, Glyph{CodePoint: 0x41, Width: 1, Bitmap: []byte{0xE0}})

	err := Write(&bytes.Buffer{}, f)
	assert.ErrorIs(t, err, ErrDuplicateCodePoint)
}

func TestWrite_BitmapSize(t *testing.T) {
	f := testFont()
	f.Glyphs[0].Bitmap = []byte{0xAB}

	err := Write(&bytes.Buffer{}, f)
	assert.ErrorIs(t, err, ErrBitmapSize)
}

func TestSorted_LeavesFontUntouched(t *testing.T) {
	f := testFont()
	glyphs, err := f.Sorted()
	require.NoError(t, err)

	assert.Equal(t, uint16(0x20), glyphs[0].CodePoint)
	assert.Equal(t, uint16(0x41), f.Glyphs[0].CodePoint)
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"orphan row", "name: F\nheight: 1\nX.\n"},
		{"bad pixel", "name: F\nheight: 1\n\ncodepoint: 65 A\nXo\n"},
		{"short glyph", "name: F\nheight: 2\n\ncodepoint: 65 A\nX.\n"},
		{"unknown field", "name: F\ncolor: red\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}
