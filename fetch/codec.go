package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mndot/honeybee/font"
	"github.com/mndot/honeybee/graphic"
	"github.com/mndot/honeybee/resource"
	"github.com/mndot/honeybee/telemetry"
	"github.com/rs/zerolog/log"
)

// glyphRow is one glyph of a font row; the bitmap is base64 in JSON
type glyphRow struct {
	CodePoint uint16 `json:"code_point"`
	Width     uint8  `json:"width"`
	Bitmap    []byte `json:"bitmap"`
}

// fontRow is the JSON form of a font query row
type fontRow struct {
	Number      uint8      `json:"f_number"`
	Name        string     `json:"name"`
	Height      uint8      `json:"height"`
	Width       uint8      `json:"width"`
	CharSpacing uint8      `json:"char_spacing"`
	LineSpacing uint8      `json:"line_spacing"`
	Glyphs      []glyphRow `json:"glyphs"`
	VersionID   uint16     `json:"version_id"`
}

func (fr *fontRow) font() *font.Font {
	glyphs := make([]font.Glyph, 0, len(fr.Glyphs))
	for _, g := range fr.Glyphs {
		glyphs = append(glyphs, font.Glyph{CodePoint: g.CodePoint, Width: g.Width, Bitmap: g.Bitmap})
	}
	return &font.Font{
		Number:      fr.Number,
		Name:        fr.Name,
		Height:      fr.Height,
		CharSpacing: fr.CharSpacing,
		LineSpacing: fr.LineSpacing,
		VersionID:   fr.VersionID,
		Glyphs:      glyphs,
	}
}

// graphicRow is the JSON form of a graphic query row
type graphicRow struct {
	Number           uint8  `json:"number"`
	Name             string `json:"name"`
	Height           uint8  `json:"height"`
	Width            uint16 `json:"width"`
	ColorScheme      string `json:"color_scheme"`
	TransparentColor *int32 `json:"transparent_color"`
	Bitmap           []byte `json:"bitmap"`
}

func (gr *graphicRow) graphic() (*graphic.Graphic, error) {
	scheme, err := graphic.ParseColorScheme(gr.ColorScheme)
	if err != nil {
		return nil, err
	}
	g := &graphic.Graphic{
		Number: gr.Number,
		Name:   gr.Name,
		Height: gr.Height,
		Width:  gr.Width,
		Scheme: scheme,
		Bitmap: gr.Bitmap,
	}
	if gr.TransparentColor != nil {
		g.Transparent = graphic.TransparentColor(*gr.TransparentColor)
	}
	return g, nil
}

// encoded is a file ready to be published
type encoded struct {
	path string
	data []byte
}

// encodeFont converts a font row to an ifnt file
func encodeFont(row string) (encoded, error) {
	var fr fontRow
	if err := json.Unmarshal([]byte(row), &fr); err != nil {
		return encoded{}, fmt.Errorf("%w: font row: %w", ErrEncode, err)
	}
	if !validFileName(fr.Name) {
		return encoded{}, fmt.Errorf("%w: invalid font name %q", ErrEncode, fr.Name)
	}
	var buf bytes.Buffer
	if err := font.Write(&buf, fr.font()); err != nil {
		return encoded{}, fmt.Errorf("%w: font %q: %w", ErrEncode, fr.Name, err)
	}
	return encoded{path: resource.FontPath(fr.Name), data: buf.Bytes()}, nil
}

// encodeGraphic converts a graphic row to a GIF file
func encodeGraphic(row string) (encoded, error) {
	var gr graphicRow
	if err := json.Unmarshal([]byte(row), &gr); err != nil {
		return encoded{}, fmt.Errorf("%w: graphic row: %w", ErrEncode, err)
	}
	g, err := gr.graphic()
	if err != nil {
		return encoded{}, fmt.Errorf("%w: graphic %d: %w", ErrEncode, gr.Number, err)
	}
	var buf bytes.Buffer
	if err := graphic.EncodeGIF(&buf, g); err != nil {
		return encoded{}, fmt.Errorf("%w: graphic %d: %w", ErrEncode, gr.Number, err)
	}
	return encoded{path: resource.GraphicPath(int(gr.Number)), data: buf.Bytes()}, nil
}

func validFileName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// encodeCache holds encoded files keyed by the XXH64 hash of their row,
// so unchanged fonts and graphics are not encoded again on every refresh
type encodeCache struct {
	entries *lru.Cache[uint64, encoded]
}

func newEncodeCache(size int) (*encodeCache, error) {
	if size <= 0 {
		return &encodeCache{}, nil
	}
	entries, err := lru.New[uint64, encoded](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create encode cache: %w", err)
	}
	return &encodeCache{entries: entries}, nil
}

func (c *encodeCache) encode(kind, row string, fn func(string) (encoded, error)) (encoded, error) {
	if c.entries == nil {
		return fn(row)
	}
	key := xxhash.Sum64String(kind + "\x00" + row)
	if enc, ok := c.entries.Get(key); ok {
		telemetry.EncodeCacheTotal.With("hit").Inc()
		return enc, nil
	}
	telemetry.EncodeCacheTotal.With("miss").Inc()
	enc, err := fn(row)
	if err != nil {
		return enc, err
	}
	c.entries.Add(key, enc)
	return enc, nil
}

func (c *encodeCache) len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// fetchEncoded publishes one file per row. A row which fails to encode is
// skipped and reported after the remaining rows are published.
func (e *Executor) fetchEncoded(ctx context.Context, kind, sql string, fn func(string) (encoded, error)) (int, error) {
	rows, err := e.query(ctx, sql)
	if err != nil {
		return 0, err
	}

	var errs []error
	count := 0
	for _, row := range rows {
		enc, err := e.cache.encode(kind, row, fn)
		if err != nil {
			log.Warn().Err(err).Str("resource", kind).Msg("Skipping row")
			errs = append(errs, err)
			continue
		}
		data := enc.data
		if err := e.publish(enc.path, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}); err != nil {
			return count, err
		}
		count++
	}
	telemetry.RowsPublished.Add(float64(count))
	return count, errors.Join(errs...)
}

func (e *Executor) fetchFonts(ctx context.Context, sql string) (int, error) {
	return e.fetchEncoded(ctx, "font", sql, encodeFont)
}

func (e *Executor) fetchGraphics(ctx context.Context, sql string) (int, error) {
	return e.fetchEncoded(ctx, "graphic", sql, encodeGraphic)
}
