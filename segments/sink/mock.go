package sink

import (
	"sync"

	"github.com/mndot/honeybee/encoding"
	"github.com/mndot/honeybee/segments"
)

// MockSink is a mock implementation of Sink for testing
type MockSink struct {
	Messages   []MockMessage
	PublishErr error
	// FailCount fails this many publishes with PublishErr before succeeding
	FailCount int
	mu        sync.Mutex
}

// MockMessage represents a published message for testing
type MockMessage struct {
	Topic string
	Key   string
	Value []byte
}

// Publish records a message for later inspection in tests
func (m *MockSink) Publish(topic, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishErr != nil {
		err := m.PublishErr
		if m.FailCount > 0 {
			m.FailCount--
			if m.FailCount == 0 {
				m.PublishErr = nil
			}
		}
		return err
	}

	m.Messages = append(m.Messages, MockMessage{
		Topic: topic,
		Key:   key,
		Value: value,
	})

	return nil
}

// Close is a no-op for MockSink
func (m *MockSink) Close() error {
	return nil
}

// Reset clears all recorded messages
func (m *MockSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}

// Decoded returns the recorded messages decoded as graph messages
func (m *MockSink) Decoded() ([]segments.Msg, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := make([]segments.Msg, 0, len(m.Messages))
	for _, raw := range m.Messages {
		var msg segments.Msg
		if err := encoding.Unmarshal(raw.Value, &msg); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
