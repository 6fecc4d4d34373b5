package telemetry

// Histogram bucket definitions for different latency profiles
var (
	// FetchBuckets for query + encode + publish of one resource
	FetchBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	// TransferBuckets for copying one file to the mirror host
	TransferBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}
)

// Notification Loop Metrics
var (
	// NotificationsTotal counts notifications by result (queued, unknown, excluded)
	NotificationsTotal CounterVec = noopCounterVec{}

	// PendingChanges tracks distinct changes waiting for the poll window to close
	PendingChanges Gauge = NoopStat{}

	// DebounceCyclesTotal counts poll windows which triggered at least one fetch
	DebounceCyclesTotal Counter = NoopStat{}
)

// Fetch Metrics
var (
	// FetchTotal counts resource fetches by kind and result (success, failed)
	FetchTotal CounterVec = noopCounterVec{}

	// FetchDurationSeconds measures fetch latency by kind
	FetchDurationSeconds HistogramVec = noopHistogramVec{}

	// RowsPublished counts rows written to published files
	RowsPublished Counter = NoopStat{}

	// FilesPublishedTotal counts files replaced on disk
	FilesPublishedTotal Counter = NoopStat{}

	// EncodeCacheTotal counts font and graphic encode cache lookups by result (hit, miss)
	EncodeCacheTotal CounterVec = noopCounterVec{}

	// GraphMessagesTotal counts road graph messages by kind
	GraphMessagesTotal CounterVec = noopCounterVec{}

	// RenderTotal counts sign message render runs by result
	RenderTotal CounterVec = noopCounterVec{}
)

// Mirror Metrics
var (
	// MirrorPending tracks files waiting to be copied
	MirrorPending Gauge = NoopStat{}

	// MirrorTransfersTotal counts file copies by result (success, failed, skipped)
	MirrorTransfersTotal CounterVec = noopCounterVec{}

	// MirrorTransferSeconds measures the time to copy one file
	MirrorTransferSeconds Histogram = NoopStat{}

	// MirrorBytesTotal counts bytes copied to the mirror host
	MirrorBytesTotal Counter = NoopStat{}

	// MirrorSessionsTotal counts session attempts by result (connected, failed)
	MirrorSessionsTotal CounterVec = noopCounterVec{}

	// MirrorLengthMismatchTotal counts copies where the remote byte count differed
	MirrorLengthMismatchTotal Counter = NoopStat{}
)

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	NotificationsTotal = NewCounterVec(
		"notifications_total",
		"Database notifications by result",
		[]string{"result"},
	)
	PendingChanges = NewGauge(
		"pending_changes",
		"Distinct changes waiting for the poll window to close",
	)
	DebounceCyclesTotal = NewCounter(
		"debounce_cycles_total",
		"Poll windows which triggered fetches",
	)

	FetchTotal = NewCounterVec(
		"fetch_total",
		"Resource fetches by kind and result",
		[]string{"kind", "result"},
	)
	FetchDurationSeconds = NewHistogramVec(
		"fetch_duration_seconds",
		"Resource fetch duration in seconds",
		[]string{"kind"},
		FetchBuckets,
	)
	RowsPublished = NewCounter(
		"rows_published",
		"Rows written to published files",
	)
	FilesPublishedTotal = NewCounter(
		"files_published_total",
		"Files atomically replaced on disk",
	)
	EncodeCacheTotal = NewCounterVec(
		"encode_cache_total",
		"Font and graphic encode cache lookups",
		[]string{"result"},
	)
	GraphMessagesTotal = NewCounterVec(
		"graph_messages_total",
		"Road graph messages by kind",
		[]string{"kind"},
	)
	RenderTotal = NewCounterVec(
		"render_total",
		"Sign message render runs by result",
		[]string{"result"},
	)

	MirrorPending = NewGauge(
		"mirror_pending",
		"Files waiting to be copied to the mirror host",
	)
	MirrorTransfersTotal = NewCounterVec(
		"mirror_transfers_total",
		"File copies by result",
		[]string{"result"},
	)
	MirrorTransferSeconds = NewHistogramWithBuckets(
		"mirror_transfer_seconds",
		"Time to copy one file in seconds",
		TransferBuckets,
	)
	MirrorBytesTotal = NewCounter(
		"mirror_bytes_total",
		"Bytes copied to the mirror host",
	)
	MirrorSessionsTotal = NewCounterVec(
		"mirror_sessions_total",
		"Mirror session attempts by result",
		[]string{"result"},
	)
	MirrorLengthMismatchTotal = NewCounter(
		"mirror_length_mismatch_total",
		"Copies where the remote byte count differed from the local file",
	)
}
