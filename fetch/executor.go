// Package fetch materializes one resource: it runs the resource query,
// encodes the rows and publishes the result to disk or to the graph sink.
//
// An error aborts only the current fetch of that resource; files published
// by earlier fetches are never touched. Errors wrapping ErrEncode come from
// bad row content and are scoped to the resource. Every other error is a
// database, disk or sink failure.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mndot/honeybee/files"
	"github.com/mndot/honeybee/resource"
	"github.com/mndot/honeybee/segments"
	"github.com/mndot/honeybee/status"
	"github.com/mndot/honeybee/telemetry"
	"github.com/rs/zerolog/log"
)

// ErrEncode is wrapped by errors caused by row content which could not be
// decoded or encoded
var ErrEncode = errors.New("encode failed")

// Querier runs read-only queries returning one text column per row
type Querier interface {
	QueryText(ctx context.Context, sql string, args ...any) ([]string, error)
}

// GraphSender delivers graph messages in order
type GraphSender interface {
	Send(ctx context.Context, msg segments.Msg) error
}

// Renderer is triggered after sign messages are published
type Renderer interface {
	Render(ctx context.Context) error
}

// Notifier receives the relative path of every published file
type Notifier interface {
	Push(path string)
}

// Config holds the collaborators of an Executor
type Config struct {
	DB        Querier
	Publisher *files.Publisher
	Graph     GraphSender // required by graph resources
	Renderer  Renderer    // optional
	Notifier  Notifier    // optional
	Tracker   *status.Tracker
	CacheSize int // encoded font/graphic cache entries, 0 disables
}

// Executor fetches resources. It is not safe for concurrent use.
type Executor struct {
	db       Querier
	pub      *files.Publisher
	graph    GraphSender
	renderer Renderer
	notifier Notifier
	tracker  *status.Tracker
	cache    *encodeCache
}

// NewExecutor creates an executor
func NewExecutor(config Config) (*Executor, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if config.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	cache, err := newEncodeCache(config.CacheSize)
	if err != nil {
		return nil, err
	}
	renderer := config.Renderer
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Executor{
		db:       config.DB,
		pub:      config.Publisher,
		graph:    config.Graph,
		renderer: renderer,
		notifier: config.Notifier,
		tracker:  config.Tracker,
		cache:    cache,
	}, nil
}

// Fetch materializes a resource. payload is the notification payload, empty
// for a full refresh; only graph resources refresh a single item.
func (e *Executor) Fetch(ctx context.Context, res *resource.Resource, payload string) error {
	start := time.Now()
	kind := res.Kind().String()

	var rows int
	var err error
	switch res.Kind() {
	case resource.KindSimple:
		rows, err = e.fetchFile(ctx, res.Name(), res.SQL())
	case resource.KindSignMsg:
		rows, err = e.fetchSignMsgs(ctx, res)
	case resource.KindFont:
		rows, err = e.fetchFonts(ctx, res.SQL())
	case resource.KindGraphic:
		rows, err = e.fetchGraphics(ctx, res.SQL())
	case resource.KindGraphNode:
		rows, err = e.fetchNodes(ctx, payload)
	case resource.KindGraphEdge:
		rows, err = e.fetchRoads(ctx, payload)
	default:
		err = fmt.Errorf("unsupported resource kind %s", res.Kind())
	}

	elapsed := time.Since(start)
	telemetry.FetchDurationSeconds.With(kind).Observe(elapsed.Seconds())
	if e.tracker != nil {
		e.tracker.FetchDone(res.Name(), kind, rows, elapsed, err)
	}
	if err != nil {
		telemetry.FetchTotal.With(kind, "failed").Inc()
		return fmt.Errorf("fetch %s: %w", res, err)
	}
	telemetry.FetchTotal.With(kind, "success").Inc()

	log.Info().
		Str("resource", res.Name()).
		Str("payload", payload).
		Int("rows", rows).
		Dur("duration", elapsed).
		Msg("Fetched resource")
	return nil
}

// query runs a resource query; failures are never scoped to the resource
func (e *Executor) query(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := e.db.QueryText(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

// fetchFile writes query rows as a JSON array
func (e *Executor) fetchFile(ctx context.Context, name, sql string) (int, error) {
	rows, err := e.query(ctx, sql)
	if err != nil {
		return 0, err
	}
	if err := e.publish(name, func(w io.Writer) error {
		return WriteJSONArray(w, rows)
	}); err != nil {
		return 0, err
	}
	telemetry.RowsPublished.Add(float64(len(rows)))
	return len(rows), nil
}

// fetchSignMsgs writes the sign message file, then renders previews.
// A render failure leaves the published file in place.
func (e *Executor) fetchSignMsgs(ctx context.Context, res *resource.Resource) (int, error) {
	rows, err := e.fetchFile(ctx, res.Name(), res.SQL())
	if err != nil {
		return rows, err
	}
	if err := e.renderer.Render(ctx); err != nil {
		telemetry.RenderTotal.With("failed").Inc()
		log.Error().Err(err).Str("resource", res.Name()).Msg("Failed to render sign messages")
	} else {
		telemetry.RenderTotal.With("success").Inc()
	}
	return rows, nil
}

// publish writes one file and hands it to the notifier
func (e *Executor) publish(rel string, fill func(w io.Writer) error) error {
	info, err := e.pub.Publish(rel, fill)
	if err != nil {
		return err
	}
	telemetry.FilesPublishedTotal.Inc()
	if e.tracker != nil {
		e.tracker.Published(info.Path, info.Size, info.Digest)
	}
	if e.notifier != nil {
		e.notifier.Push(info.Path)
		if info.Compressed != "" {
			e.notifier.Push(info.Compressed)
		}
	}
	return nil
}

// WriteJSONArray writes rows of JSON text as an array, one row per line.
// No rows produce "[]".
func WriteJSONArray(w io.Writer, rows []string) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, row := range rows {
		sep := "\n"
		if i > 0 {
			sep = ",\n"
		}
		if _, err := io.WriteString(w, sep); err != nil {
			return err
		}
		if _, err := io.WriteString(w, row); err != nil {
			return err
		}
	}
	end := "]\n"
	if len(rows) > 0 {
		end = "\n]\n"
	}
	_, err := io.WriteString(w, end)
	return err
}
