package segments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mndot/honeybee/cfg"
	"github.com/mndot/honeybee/encoding"
	"github.com/mndot/honeybee/telemetry"
	"github.com/rs/zerolog/log"
)

const (
	// Default initial retry delay for failed publish operations
	DefaultRetryInitial = 100 * time.Millisecond
	// Default maximum retry delay (exponential backoff cap)
	DefaultRetryMax = 5 * time.Second
	// Maximum number of attempts before a message is reported as failed
	DefaultMaxRetries = 8
)

// Sink is a destination for encoded graph messages (e.g., Kafka, NATS)
type Sink interface {
	// Publish sends a message to the sink
	Publish(topic string, key string, value []byte) error
	// Close releases any resources held by the sink
	Close() error
}

// SinkFactory is a function that creates a Sink from a configuration
type SinkFactory func(cfg.GraphConfiguration) (Sink, error)

var (
	sinkFactories = make(map[cfg.GraphSinkType]SinkFactory)
	factoryMu     sync.RWMutex
)

// RegisterSink registers a sink factory for a type
func RegisterSink(sinkType cfg.GraphSinkType, factory SinkFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	sinkFactories[sinkType] = factory
}

// NewSink creates a sink based on the configuration
func NewSink(config cfg.GraphConfiguration) (Sink, error) {
	factoryMu.RLock()
	factory, exists := sinkFactories[config.Sink]
	factoryMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown graph sink type: %s", config.Sink)
	}

	return factory(config)
}

// Sender encodes graph messages and publishes them to a sink
type Sender struct {
	sink         Sink
	topic        string
	retryInitial time.Duration
	retryMax     time.Duration
	maxRetries   int
}

// NewSender creates a sender publishing to topic
func NewSender(sink Sink, topic string) *Sender {
	return &Sender{
		sink:         sink,
		topic:        topic,
		retryInitial: DefaultRetryInitial,
		retryMax:     DefaultRetryMax,
		maxRetries:   DefaultMaxRetries,
	}
}

// Send publishes one message, retrying with exponential backoff
func (s *Sender) Send(ctx context.Context, msg Msg) error {
	data, err := encoding.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Kind, err)
	}

	delay := s.retryInitial
	attempts := 0
	for {
		err := s.sink.Publish(s.topic, msg.Key(), data)
		if err == nil {
			telemetry.GraphMessagesTotal.With(msg.Kind.String()).Inc()
			return nil
		}

		attempts++
		if attempts >= s.maxRetries {
			return fmt.Errorf("exhausted max retries (%d) for %s: %w", s.maxRetries, msg.Kind, err)
		}

		log.Warn().
			Err(err).
			Str("topic", s.topic).
			Str("kind", msg.Kind.String()).
			Int("attempt", attempts).
			Dur("retry_delay", delay).
			Msg("Failed to publish graph message, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > s.retryMax {
			delay = s.retryMax
		}
	}
}

// Close closes the underlying sink
func (s *Sender) Close() error {
	return s.sink.Close()
}
