package font

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

const (
	pixelOn  = 'X'
	pixelOff = '.'
)

// Write encodes a font in ifnt format
func Write(w io.Writer, f *Font) error {
	if err := f.Validate(); err != nil {
		return err
	}
	glyphs, err := f.Sorted()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "name: %s\n", f.Name)
	fmt.Fprintf(bw, "font_number: %d\n", f.Number)
	fmt.Fprintf(bw, "height: %d\n", f.Height)
	fmt.Fprintf(bw, "char_spacing: %d\n", f.CharSpacing)
	fmt.Fprintf(bw, "line_spacing: %d\n", f.LineSpacing)
	fmt.Fprintf(bw, "version_id: %d\n", f.VersionID)

	height := int(f.Height)
	for _, g := range glyphs {
		fmt.Fprintf(bw, "\ncodepoint: %d", g.CodePoint)
		if r := rune(g.CodePoint); unicode.IsPrint(r) && !unicode.IsSpace(r) {
			fmt.Fprintf(bw, " %c", r)
		}
		bw.WriteByte('\n')

		width := int(g.Width)
		row := make([]byte, width+1)
		row[width] = '\n'
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if Pixel(g.Bitmap, width, x, y) {
					row[x] = pixelOn
				} else {
					row[x] = pixelOff
				}
			}
			bw.Write(row)
		}
	}
	return bw.Flush()
}

// Read decodes a font in ifnt format
func Read(r io.Reader) (*Font, error) {
	sc := bufio.NewScanner(r)
	f := &Font{}
	var glyph *Glyph
	var rows [][]byte
	line := 0

	finish := func() error {
		if glyph == nil {
			return nil
		}
		if len(rows) != int(f.Height) {
			return fmt.Errorf("code point %d: %d rows, want %d", glyph.CodePoint, len(rows), f.Height)
		}
		if len(rows) > 0 {
			glyph.Width = uint8(len(rows[0]))
		}
		glyph.Bitmap = make([]byte, BitmapLen(glyph.Width, f.Height))
		for y, row := range rows {
			if len(row) != int(glyph.Width) {
				return fmt.Errorf("code point %d: ragged row %d", glyph.CodePoint, y)
			}
			for x, c := range row {
				switch c {
				case pixelOn:
					setPixel(glyph.Bitmap, int(glyph.Width), x, y)
				case pixelOff:
				default:
					return fmt.Errorf("code point %d: invalid pixel %q", glyph.CodePoint, c)
				}
			}
		}
		f.Glyphs = append(f.Glyphs, *glyph)
		glyph, rows = nil, nil
		return nil
	}

	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			// a zero width glyph is written as empty rows
			if glyph != nil && len(rows) < int(f.Height) {
				rows = append(rows, []byte{})
			}
			continue
		}
		key, value, isField := strings.Cut(text, ": ")
		if !isField {
			if glyph == nil {
				return nil, fmt.Errorf("line %d: pixel row outside of glyph", line)
			}
			rows = append(rows, []byte(text))
			continue
		}
		if key == "codepoint" {
			if err := finish(); err != nil {
				return nil, err
			}
			num, _, _ := strings.Cut(value, " ")
			cp, err := strconv.ParseUint(num, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid code point: %w", line, err)
			}
			glyph = &Glyph{CodePoint: uint16(cp)}
			continue
		}
		if err := f.setField(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return f, f.Validate()
}

func (f *Font) setField(key, value string) error {
	if key == "name" {
		f.Name = value
		return nil
	}
	bits := 8
	if key == "version_id" {
		bits = 16
	}
	n, err := strconv.ParseUint(value, 10, bits)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	switch key {
	case "font_number":
		f.Number = uint8(n)
	case "height":
		f.Height = uint8(n)
	case "char_spacing":
		f.CharSpacing = uint8(n)
	case "line_spacing":
		f.LineSpacing = uint8(n)
	case "version_id":
		f.VersionID = uint16(n)
	default:
		return fmt.Errorf("unknown field %q", key)
	}
	return nil
}
