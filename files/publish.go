// Package files publishes materialized resources to disk.
//
// Every file is written to a temporary sibling in its destination directory
// and renamed over the target once complete, so concurrent readers observe
// either the previous or the new content, never a partial write.
package files

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

// FileMode is the permission mode of published files
const FileMode = 0644

// GzipSuffix is appended to the path of precompressed siblings
const GzipSuffix = ".gz"

// Info describes a published file
type Info struct {
	// Path relative to the publisher root
	Path string
	// Size in bytes of the uncompressed content
	Size int64
	// Digest is the xxhash64 of the content
	Digest uint64
	// Compressed is the path of the gzip sibling, if written
	Compressed string
}

// Publisher writes files atomically under a root directory
type Publisher struct {
	root        string
	precompress bool
	level       int
	gzipPool    sync.Pool
}

// Option configures a Publisher
type Option func(*Publisher)

// WithPrecompress also writes a gzip sibling for every published file
func WithPrecompress(level int) Option {
	return func(p *Publisher) {
		p.precompress = true
		p.level = level
	}
}

// NewPublisher creates a publisher rooted at dir
func NewPublisher(root string, opts ...Option) *Publisher {
	p := &Publisher{root: root, level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Root returns the publisher root directory
func (p *Publisher) Root() string {
	return p.root
}

// Abs returns the absolute path of a published file
func (p *Publisher) Abs(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

// Publish writes the content produced by fill to rel atomically.
// When fill fails, the previously published file is left untouched.
func (p *Publisher) Publish(rel string, fill func(w io.Writer) error) (Info, error) {
	info := Info{Path: rel}
	dst := p.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return info, fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}

	tmp, err := newTempFile(dst)
	if err != nil {
		return info, err
	}
	defer tmp.discard()

	var gz *tempFile
	var zw *gzip.Writer
	if p.precompress {
		gz, err = newTempFile(dst + GzipSuffix)
		if err != nil {
			return info, err
		}
		defer gz.discard()
		zw = p.gzipWriter(gz.buf)
		defer p.gzipPool.Put(zw)
	}

	digest := xxhash.New()
	counter := &countingWriter{}
	writers := []io.Writer{tmp.buf, digest, counter}
	if zw != nil {
		writers = append(writers, zw)
	}
	if err := fill(io.MultiWriter(writers...)); err != nil {
		return info, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return info, fmt.Errorf("failed to compress %s: %w", rel, err)
		}
	}

	if err := tmp.commit(); err != nil {
		return info, fmt.Errorf("failed to publish %s: %w", rel, err)
	}
	info.Size = counter.n
	info.Digest = digest.Sum64()

	if gz != nil {
		if err := gz.commit(); err != nil {
			// the plain file is already in place; a stale sibling is tolerable
			log.Warn().Err(err).Str("path", rel).Msg("Failed to publish compressed sibling")
		} else {
			info.Compressed = rel + GzipSuffix
		}
	}

	log.Debug().
		Str("path", rel).
		Int64("size", info.Size).
		Uint64("digest", info.Digest).
		Msg("Published file")
	return info, nil
}

func (p *Publisher) gzipWriter(w io.Writer) *gzip.Writer {
	if zw, ok := p.gzipPool.Get().(*gzip.Writer); ok {
		zw.Reset(w)
		return zw
	}
	zw, err := gzip.NewWriterLevel(w, p.level)
	if err != nil {
		zw = gzip.NewWriter(w)
	}
	return zw
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	c.n += int64(len(b))
	return len(b), nil
}

// tempFile is a buffered temporary sibling of a destination path
type tempFile struct {
	dst  string
	file *os.File
	buf  *bufio.Writer
	done bool
}

func newTempFile(dst string) (*tempFile, error) {
	f, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", dst, err)
	}
	return &tempFile{dst: dst, file: f, buf: bufio.NewWriter(f)}, nil
}

// commit flushes, closes and renames the temporary file over its destination
func (t *tempFile) commit() error {
	if err := t.buf.Flush(); err != nil {
		return err
	}
	if err := t.file.Chmod(FileMode); err != nil {
		return err
	}
	if err := t.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(t.file.Name(), t.dst); err != nil {
		return err
	}
	t.done = true
	return nil
}

// discard removes the temporary file unless it was committed
func (t *tempFile) discard() {
	if t.done {
		return
	}
	t.file.Close()
	os.Remove(t.file.Name())
}

// Digest computes the xxhash64 of a published file
func (p *Publisher) Digest(rel string) (uint64, error) {
	f, err := os.Open(p.Abs(rel))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}
