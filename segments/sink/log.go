package sink

import (
	"github.com/mndot/honeybee/cfg"
	"github.com/mndot/honeybee/encoding"
	"github.com/mndot/honeybee/segments"
	"github.com/rs/zerolog/log"
)

func init() {
	segments.RegisterSink(cfg.GraphSinkLog, func(cfg.GraphConfiguration) (segments.Sink, error) {
		return LogSink{}, nil
	})
	segments.RegisterSink(cfg.GraphSinkNone, func(cfg.GraphConfiguration) (segments.Sink, error) {
		return NopSink{}, nil
	})
}

// LogSink writes graph messages to the debug log
type LogSink struct{}

func (LogSink) Publish(topic, key string, value []byte) error {
	var msg segments.Msg
	if err := encoding.Unmarshal(value, &msg); err != nil {
		return err
	}
	ev := log.Debug().Str("topic", topic).Str("kind", msg.Kind.String())
	switch {
	case msg.Node != nil:
		ev = ev.Str("r_node", msg.Node.Name)
	case msg.Road != nil:
		ev = ev.Str("road", msg.Road.Name)
	case msg.Name != "":
		ev = ev.Str("r_node", msg.Name)
	}
	ev.Msg("Graph message")
	return nil
}

func (LogSink) Close() error { return nil }

// NopSink discards graph messages
type NopSink struct{}

func (NopSink) Publish(string, string, []byte) error { return nil }
func (NopSink) Close() error                         { return nil }
