// Package notify drives resource fetches from database change
// notifications.
//
// The loop fetches every resource once at startup. After that it gathers
// notifications until a poll window passes without any, then refetches each
// resource matching the gathered changes once.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/mndot/honeybee/db"
	"github.com/mndot/honeybee/fetch"
	"github.com/mndot/honeybee/resource"
	"github.com/mndot/honeybee/telemetry"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWindow is how long the loop waits for another notification
	DefaultWindow = 300 * time.Millisecond
	// DefaultMaxDelay bounds how long a change waits under a steady stream
	DefaultMaxDelay = 5 * time.Second
)

// Source delivers change notifications
type Source interface {
	Listen(ctx context.Context, channels []string) error
	Poll(ctx context.Context, window time.Duration) (db.Notification, bool, error)
}

// Fetcher materializes one resource
type Fetcher interface {
	Fetch(ctx context.Context, res *resource.Resource, payload string) error
}

// change is one distinct (channel, payload) notification
type change struct {
	channel string
	payload string
}

// Loop is the change notification loop. It owns its Source.
type Loop struct {
	source   Source
	registry *resource.Registry
	fetcher  Fetcher
	window   time.Duration
	maxDelay time.Duration

	pending map[change]struct{}
	since   time.Time
	ready   atomic.Bool
}

// NewLoop creates a notification loop
func NewLoop(source Source, registry *resource.Registry, fetcher Fetcher, window time.Duration) *Loop {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Loop{
		source:   source,
		registry: registry,
		fetcher:  fetcher,
		window:   window,
		maxDelay: DefaultMaxDelay,
		pending:  make(map[change]struct{}),
	}
}

// Ready reports whether the initial fetch of every resource has completed
func (l *Loop) Ready() bool {
	return l.ready.Load()
}

// Run subscribes, fetches everything and then processes notifications
// until the context ends or a fetch fails. It returns nil when the
// context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	// subscribe first: changes made during the initial fetch stay queued
	if err := l.source.Listen(ctx, l.registry.Channels()); err != nil {
		return err
	}
	if err := l.bootstrap(ctx); err != nil {
		return l.exit(ctx, err)
	}
	l.ready.Store(true)
	log.Info().Int("resources", l.registry.Len()).Msg("Initial fetch complete")

	for {
		n, ok, err := l.source.Poll(ctx, l.window)
		if err != nil {
			return l.exit(ctx, err)
		}
		if ok {
			l.observe(n)
			if len(l.pending) == 0 || time.Since(l.since) < l.maxDelay {
				continue
			}
			log.Debug().Int("pending", len(l.pending)).Msg("Change stream did not settle, flushing")
		}
		if len(l.pending) > 0 {
			if err := l.flush(ctx); err != nil {
				return l.exit(ctx, err)
			}
		}
	}
}

func (l *Loop) exit(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (l *Loop) bootstrap(ctx context.Context) error {
	for _, res := range l.registry.Resources() {
		if err := l.fetch(ctx, res, ""); err != nil {
			return err
		}
	}
	return nil
}

// observe records a notification; unknown ones are dropped
func (l *Loop) observe(n db.Notification) {
	switch {
	case !l.registry.Known(n.Channel, n.Payload):
		telemetry.NotificationsTotal.With("unknown").Inc()
		log.Warn().Str("channel", n.Channel).Str("payload", n.Payload).Msg("Unknown notification")
		return
	case len(l.registry.Matching(n.Channel, n.Payload)) == 0:
		telemetry.NotificationsTotal.With("excluded").Inc()
		return
	}

	telemetry.NotificationsTotal.With("queued").Inc()
	if len(l.pending) == 0 {
		l.since = time.Now()
	}
	l.pending[change{channel: n.Channel, payload: n.Payload}] = struct{}{}
	telemetry.PendingChanges.Set(float64(len(l.pending)))
}

// flush refetches, in registry order, every resource matching a pending
// change. File resources are fetched once; graph resources once per
// distinct payload, or once in full when any payload is empty.
func (l *Loop) flush(ctx context.Context) error {
	changes := make([]change, 0, len(l.pending))
	for c := range l.pending {
		changes = append(changes, c)
	}
	l.pending = make(map[change]struct{})
	telemetry.PendingChanges.Set(0)
	telemetry.DebounceCyclesTotal.Inc()

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].channel != changes[j].channel {
			return changes[i].channel < changes[j].channel
		}
		return changes[i].payload < changes[j].payload
	})

	for _, res := range l.registry.Resources() {
		for _, payload := range payloads(res, changes) {
			if err := l.fetch(ctx, res, payload); err != nil {
				return err
			}
		}
	}
	return nil
}

// payloads returns the payloads a resource must be fetched with
func payloads(res *resource.Resource, changes []change) []string {
	var matched []string
	seen := make(map[string]struct{})
	for _, c := range changes {
		if !res.Rule().Matches(c.channel, c.payload) {
			continue
		}
		if res.Kind().WritesFiles() || c.payload == "" {
			return []string{""}
		}
		if _, dup := seen[c.payload]; !dup {
			seen[c.payload] = struct{}{}
			matched = append(matched, c.payload)
		}
	}
	return matched
}

// fetch runs one fetch; encode errors are logged and scoped to the resource
func (l *Loop) fetch(ctx context.Context, res *resource.Resource, payload string) error {
	err := l.fetcher.Fetch(ctx, res, payload)
	if err == nil {
		return nil
	}
	if errors.Is(err, fetch.ErrEncode) {
		log.Error().Err(err).Str("resource", res.Name()).Msg("Skipped bad content")
		return nil
	}
	return fmt.Errorf("resource %s: %w", res.Name(), err)
}
