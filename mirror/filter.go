package mirror

import (
	"fmt"

	"github.com/gobwas/glob"
)

// GlobFilter selects which published paths are copied to the mirror host
type GlobFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewGlobFilter creates a new glob-based filter.
// No include patterns means every path is included; exclusions win.
func NewGlobFilter(include, exclude []string) (*GlobFilter, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}
	return &GlobFilter{include: inc, exclude: exc}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		// '/' separates path segments so '*' stays within one directory
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Match returns true if the path should be copied
func (f *GlobFilter) Match(path string) bool {
	for _, g := range f.exclude {
		if g.Match(path) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(path) {
			return true
		}
	}
	return false
}
