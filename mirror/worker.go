// Package mirror copies published files to a remote host.
//
// The worker owns one remote session at a time. It waits for published
// paths on a Queue, drains everything queued and copies the batch. Any
// connect or transfer failure discards the session, sleeps a fixed backoff
// and reconnects; the whole batch stays pending and is copied again after
// the reconnect.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mndot/honeybee/status"
	"github.com/mndot/honeybee/telemetry"
	"github.com/rs/zerolog/log"
)

// ErrLengthMismatch is reported when the remote byte count differs from the
// local file size
var ErrLengthMismatch = errors.New("transfer length mismatch")

const (
	// DefaultBackoff is the delay between reconnect attempts
	DefaultBackoff = 10 * time.Second
	// DefaultFileMode is the permission mode of remote files
	DefaultFileMode os.FileMode = 0644
)

// Session is an authenticated connection to the remote host
type Session interface {
	// Copy writes size bytes from r to remotePath and returns the number of
	// bytes the remote side accepted
	Copy(ctx context.Context, remotePath string, mode os.FileMode, r io.Reader, size int64) (int64, error)
	// Close tears down the session and its transport
	Close() error
}

// Dialer opens sessions to the remote host
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Filter determines whether a published path is copied
type Filter interface {
	Match(path string) bool
}

// WorkerConfig configures the mirror worker
type WorkerConfig struct {
	Root      string          // Local publish root
	RemoteDir string          // Remote directory receiving the files
	FileMode  os.FileMode     // Remote file mode
	Backoff   time.Duration   // Delay between reconnect attempts
	Dialer    Dialer          // Remote session factory
	Filter    Filter          // Optional path filter
	Tracker   *status.Tracker // Optional status tracker
}

// Worker copies queued files to the remote host
type Worker struct {
	config  WorkerConfig
	queue   *Queue
	pending map[string]struct{}

	stopCh      chan struct{}
	doneCh      chan struct{}
	running     atomic.Bool
	lifecycleMu sync.Mutex
}

// NewWorker creates a new mirror worker
func NewWorker(config WorkerConfig, queue *Queue) (*Worker, error) {
	if config.Dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if config.RemoteDir == "" {
		return nil, fmt.Errorf("remote directory is required")
	}

	if config.Backoff <= 0 {
		config.Backoff = DefaultBackoff
	}
	if config.FileMode == 0 {
		config.FileMode = DefaultFileMode
	}

	return &Worker{
		config:  config,
		queue:   queue,
		pending: make(map[string]struct{}),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start starts the worker goroutine
func (w *Worker) Start() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.running.Load() {
		return
	}

	w.running.Store(true)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	log.Info().
		Str("remote_dir", w.config.RemoteDir).
		Dur("backoff", w.config.Backoff).
		Msg("Starting mirror worker")

	go w.run()
}

// Stop stops the worker and waits for it to exit.
// Files still pending are dropped; every file is republished at startup.
func (w *Worker) Stop() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if !w.running.Load() {
		return
	}

	log.Info().Msg("Stopping mirror worker")

	close(w.stopCh)
	<-w.doneCh
	w.running.Store(false)

	log.Info().Int("pending", len(w.pending)).Msg("Mirror worker stopped")
}

func (w *Worker) run() {
	defer close(w.doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for ctx.Err() == nil {
		sess, err := w.config.Dialer.Dial(ctx)
		if err != nil {
			telemetry.MirrorSessionsTotal.With("failed").Inc()
			log.Warn().Err(err).Dur("retry_delay", w.config.Backoff).Msg("Failed to connect to mirror host")
			if !w.sleep(w.config.Backoff) {
				return
			}
			continue
		}
		telemetry.MirrorSessionsTotal.With("connected").Inc()
		log.Info().Int("pending", len(w.pending)).Msg("Connected to mirror host")

		err = w.serve(ctx, sess)
		if cerr := sess.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("Failed to close mirror session")
		}
		if ctx.Err() != nil {
			return
		}
		log.Warn().
			Err(err).
			Int("pending", len(w.pending)).
			Dur("retry_delay", w.config.Backoff).
			Msg("Mirror session failed")
		if !w.sleep(w.config.Backoff) {
			return
		}
	}
}

// serve copies batches until the session fails or the context ends
func (w *Worker) serve(ctx context.Context, sess Session) error {
	for {
		if len(w.pending) == 0 {
			paths, err := w.queue.Wait(ctx)
			if err != nil {
				return err
			}
			w.merge(paths)
		}
		w.merge(w.queue.Drain())
		telemetry.MirrorPending.Set(float64(len(w.pending)))

		for _, p := range w.batch() {
			if err := w.transfer(ctx, sess, p); err != nil {
				telemetry.MirrorTransfersTotal.With("failed").Inc()
				if w.config.Tracker != nil {
					w.config.Tracker.Mirrored(p, err)
				}
				return fmt.Errorf("failed to copy %s: %w", p, err)
			}
		}
		w.pending = make(map[string]struct{})
		telemetry.MirrorPending.Set(0)
	}
}

func (w *Worker) merge(paths []string) {
	for _, p := range paths {
		w.pending[p] = struct{}{}
	}
}

func (w *Worker) batch() []string {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// transfer copies one file. A missing local file or a filtered path is
// skipped; a length mismatch is logged but not retried.
func (w *Worker) transfer(ctx context.Context, sess Session, rel string) error {
	if w.config.Filter != nil && !w.config.Filter.Match(rel) {
		telemetry.MirrorTransfersTotal.With("skipped").Inc()
		return nil
	}

	f, err := os.Open(filepath.Join(w.config.Root, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("path", rel).Msg("Published file vanished before mirroring")
			telemetry.MirrorTransfersTotal.With("skipped").Inc()
			return nil
		}
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	size := st.Size()

	start := time.Now()
	remote := path.Join(w.config.RemoteDir, rel)
	n, err := sess.Copy(ctx, remote, w.config.FileMode, f, size)
	if err != nil {
		return err
	}
	telemetry.MirrorTransferSeconds.Observe(time.Since(start).Seconds())
	telemetry.MirrorBytesTotal.Add(float64(n))

	if n != size {
		telemetry.MirrorLengthMismatchTotal.Inc()
		mismatch := fmt.Errorf("%w: %s sent %d of %d bytes", ErrLengthMismatch, rel, n, size)
		log.Error().Err(mismatch).Str("path", rel).Msg("Mirror copy incomplete")
		if w.config.Tracker != nil {
			w.config.Tracker.Mirrored(rel, mismatch)
		}
		return nil
	}

	telemetry.MirrorTransfersTotal.With("success").Inc()
	if w.config.Tracker != nil {
		w.config.Tracker.Mirrored(rel, nil)
	}
	log.Debug().Str("path", rel).Int64("size", size).Str("remote", remote).Msg("Mirrored file")
	return nil
}

// sleep sleeps for the given duration, checking stopCh
// Returns true if sleep completed, false if stopped
func (w *Worker) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-w.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// NullWorker drains the queue without copying anything.
// It is used when no mirror host is configured.
type NullWorker struct {
	queue   *Queue
	stopCh  chan struct{}
	doneCh  chan struct{}
	started atomic.Bool
	once    sync.Once
}

// NewNullWorker creates a worker that discards queued paths
func NewNullWorker(queue *Queue) *NullWorker {
	return &NullWorker{
		queue:  queue,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start starts draining the queue
func (w *NullWorker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	log.Info().Msg("No mirror host configured, published files stay local")
	go func() {
		defer close(w.doneCh)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-w.stopCh
			cancel()
		}()
		for {
			paths, err := w.queue.Wait(ctx)
			if err != nil {
				return
			}
			telemetry.MirrorTransfersTotal.With("skipped").Add(float64(len(paths)))
		}
	}()
}

// Stop stops the worker and waits for it to exit
func (w *NullWorker) Stop() {
	if !w.started.Load() {
		return
	}
	w.once.Do(func() {
		close(w.stopCh)
		<-w.doneCh
	})
}
