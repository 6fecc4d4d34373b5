package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mndot/honeybee/admin"
	"github.com/mndot/honeybee/cfg"
	"github.com/mndot/honeybee/db"
	"github.com/mndot/honeybee/fetch"
	"github.com/mndot/honeybee/files"
	"github.com/mndot/honeybee/mirror"
	"github.com/mndot/honeybee/notify"
	"github.com/mndot/honeybee/resource"
	"github.com/mndot/honeybee/segments"
	_ "github.com/mndot/honeybee/segments/sink"
	"github.com/mndot/honeybee/status"
	"github.com/mndot/honeybee/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// worker is a mirror worker or its no-op stand-in
type worker interface {
	Start()
	Stop()
}

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("instance_id", cfg.Config.InstanceID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("Honeybee - resource publisher")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	if cfg.Config.Prometheus.Enabled {
		telemetry.InitMetrics()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := resource.DefaultRegistry()
	tracker := status.NewTracker()
	queue := mirror.NewQueue()

	mw, err := newMirrorWorker(queue, tracker)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize mirror worker")
		return
	}
	mw.Start()
	defer mw.Stop()

	collector := telemetry.NewMetricsCollector(queue, 5*time.Second)
	collector.Start()
	defer collector.Stop()

	sink, err := segments.NewSink(cfg.Config.Graph)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize graph sink")
		return
	}
	sender := segments.NewSender(sink, cfg.Config.Graph.Topic)
	defer sender.Close()

	var opts []files.Option
	if cfg.Config.Publish.Precompress {
		opts = append(opts, files.WithPrecompress(cfg.Config.Publish.CompressionLevel))
	}
	publisher := files.NewPublisher(cfg.Config.Publish.Dir, opts...)

	conn, err := db.Connect(ctx, cfg.Config.Database.URL, cfg.Config.Database.TimeZone)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
		return
	}
	defer conn.Close(context.Background())

	executor, err := fetch.NewExecutor(fetch.Config{
		DB:        conn,
		Publisher: publisher,
		Graph:     sender,
		Renderer:  newRenderer(),
		Notifier:  queue,
		Tracker:   tracker,
		CacheSize: cfg.Config.Publish.EncodeCacheSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize fetch executor")
		return
	}

	window := time.Duration(cfg.Config.Publish.PollWindowMS) * time.Millisecond
	loop := notify.NewLoop(conn, registry, executor, window)

	if cfg.Config.Admin.Enabled {
		server := startAdminServer(admin.NewAdminHandlers(registry, tracker, loop, queue))
		defer server.Close()
	}

	log.Info().
		Str("publish_dir", publisher.Root()).
		Int("resources", registry.Len()).
		Bool("mirror", cfg.MirrorEnabled()).
		Msg("Honeybee started")

	if err := loop.Run(ctx); err != nil {
		// deferred cleanup is skipped; the supervisor restarts the process
		log.Fatal().Err(err).Msg("Notification loop failed")
	}
	log.Info().Msg("Shutting down")
}

func newMirrorWorker(queue *mirror.Queue, tracker *status.Tracker) (worker, error) {
	if !cfg.MirrorEnabled() {
		return mirror.NewNullWorker(queue), nil
	}

	mode, err := cfg.MirrorFileMode()
	if err != nil {
		return nil, err
	}
	filter, err := mirror.NewGlobFilter(cfg.Config.Mirror.Include, cfg.Config.Mirror.Exclude)
	if err != nil {
		return nil, err
	}

	return mirror.NewWorker(mirror.WorkerConfig{
		Root:      cfg.Config.Publish.Dir,
		RemoteDir: cfg.Config.Mirror.RemoteDir,
		FileMode:  mode,
		Backoff:   time.Duration(cfg.Config.Mirror.BackoffSeconds) * time.Second,
		Dialer: &mirror.SSHDialer{
			Host:       cfg.Config.Mirror.Host,
			User:       cfg.Config.Mirror.User,
			KeyFile:    cfg.Config.Mirror.KeyFile,
			KnownHosts: cfg.Config.Mirror.KnownHosts,
		},
		Filter:  filter,
		Tracker: tracker,
	}, queue)
}

func newRenderer() fetch.Renderer {
	if cfg.Config.Render.Command == "" {
		return fetch.NopRenderer{}
	}
	return &fetch.CommandRenderer{
		Command: cfg.Config.Render.Command,
		Args:    cfg.Config.Render.Args,
		Dir:     cfg.Config.Publish.Dir,
		Timeout: time.Duration(cfg.Config.Render.TimeoutSeconds) * time.Second,
	}
}

func startAdminServer(handlers *admin.AdminHandlers) *http.Server {
	mux := http.NewServeMux()
	admin.RegisterRoutes(mux, handlers)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Config.Admin.BindAddress, cfg.Config.Admin.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("address", server.Addr).Msg("Starting admin server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin server failed")
		}
	}()
	return server
}
