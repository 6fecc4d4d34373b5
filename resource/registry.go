package resource

import (
	"fmt"
	"sort"
)

// Registry is an ordered, immutable set of resources
type Registry struct {
	resources []*Resource
	channels  []string
}

// NewRegistry creates a registry; fetch order follows the given order
func NewRegistry(resources ...*Resource) (*Registry, error) {
	seen := make(map[string]struct{}, len(resources))
	chans := make(map[string]struct{})
	for _, res := range resources {
		if res == nil {
			return nil, fmt.Errorf("nil resource in registry")
		}
		key := res.kind.String() + ":" + res.name
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate resource %s", res)
		}
		seen[key] = struct{}{}
		if res.kind.WritesFiles() && res.sql == "" {
			return nil, fmt.Errorf("resource %s has no query", res)
		}
		for _, ch := range res.rule.Channels() {
			chans[ch] = struct{}{}
		}
	}

	channels := make([]string, 0, len(chans))
	for ch := range chans {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	return &Registry{resources: resources, channels: channels}, nil
}

// Resources returns the resources in fetch order
func (r *Registry) Resources() []*Resource {
	out := make([]*Resource, len(r.resources))
	copy(out, r.resources)
	return out
}

// Len returns the number of resources
func (r *Registry) Len() int {
	return len(r.resources)
}

// Channels returns the sorted union of channels referenced by any rule
func (r *Registry) Channels() []string {
	out := make([]string, len(r.channels))
	copy(out, r.channels)
	return out
}

// Matching returns the resources, in fetch order, whose rule matches
func (r *Registry) Matching(channel, payload string) []*Resource {
	var out []*Resource
	for _, res := range r.resources {
		if res.rule.Matches(channel, payload) {
			out = append(out, res)
		}
	}
	return out
}

// Known reports whether any resource matches or deliberately excludes a
// notification. Unknown notifications are dropped by the loop.
func (r *Registry) Known(channel, payload string) bool {
	return len(r.Matching(channel, payload)) > 0 || r.Excluded(channel, payload)
}

// Excluded reports whether any resource deliberately ignores a notification
func (r *Registry) Excluded(channel, payload string) bool {
	for _, res := range r.resources {
		if res.rule.Excluded(channel, payload) {
			return true
		}
	}
	return false
}

// Lookup finds a resource by name
func (r *Registry) Lookup(name string) (*Resource, bool) {
	for _, res := range r.resources {
		if res.name == name {
			return res, true
		}
	}
	return nil, false
}
