// Package status records what the pipeline last did for every resource and
// published file. It is written by the notification loop and the mirror
// worker and read by the admin server.
package status

import (
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Resource is the fetch history of one resource
type Resource struct {
	Name        string        `json:"name"`
	Kind        string        `json:"kind"`
	Fetches     uint64        `json:"fetches"`
	Failures    uint64        `json:"failures"`
	Rows        int           `json:"rows"`
	Duration    time.Duration `json:"duration_ns"`
	LastFetch   time.Time     `json:"last_fetch"`
	LastSuccess time.Time     `json:"last_success,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
}

// File is the publish and mirror history of one file
type File struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Digest      uint64    `json:"digest"`
	PublishedAt time.Time `json:"published_at"`
	MirroredAt  time.Time `json:"mirrored_at,omitempty"`
	MirrorError string    `json:"mirror_error,omitempty"`
}

// Tracker is a concurrent status store
type Tracker struct {
	resources *xsync.MapOf[string, Resource]
	files     *xsync.MapOf[string, File]
	now       func() time.Time
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		resources: xsync.NewMapOf[string, Resource](),
		files:     xsync.NewMapOf[string, File](),
		now:       time.Now,
	}
}

// FetchDone records the outcome of one resource fetch
func (t *Tracker) FetchDone(name, kind string, rows int, elapsed time.Duration, err error) {
	now := t.now()
	t.resources.Compute(name, func(r Resource, _ bool) (Resource, bool) {
		r.Name = name
		r.Kind = kind
		r.Fetches++
		r.Duration = elapsed
		r.LastFetch = now
		if err != nil {
			r.Failures++
			r.LastError = err.Error()
		} else {
			r.Rows = rows
			r.LastSuccess = now
			r.LastError = ""
		}
		return r, false
	})
}

// Published records a file written to disk
func (t *Tracker) Published(path string, size int64, digest uint64) {
	now := t.now()
	t.files.Compute(path, func(f File, _ bool) (File, bool) {
		f.Path = path
		f.Size = size
		f.Digest = digest
		f.PublishedAt = now
		return f, false
	})
}

// Mirrored records the outcome of copying a file to the mirror host
func (t *Tracker) Mirrored(path string, err error) {
	now := t.now()
	t.files.Compute(path, func(f File, _ bool) (File, bool) {
		f.Path = path
		if err != nil {
			f.MirrorError = err.Error()
		} else {
			f.MirroredAt = now
			f.MirrorError = ""
		}
		return f, false
	})
}

// Resource returns the status of one resource
func (t *Tracker) Resource(name string) (Resource, bool) {
	return t.resources.Load(name)
}

// File returns the status of one published file
func (t *Tracker) File(path string) (File, bool) {
	return t.files.Load(path)
}

// Resources returns every resource status ordered by name
func (t *Tracker) Resources() []Resource {
	out := make([]Resource, 0, t.resources.Size())
	t.resources.Range(func(_ string, r Resource) bool {
		out = append(out, r)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Files returns every file status ordered by path
func (t *Tracker) Files() []File {
	out := make([]File, 0, t.files.Size())
	t.files.Range(func(_ string, f File) bool {
		out = append(out, f)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
