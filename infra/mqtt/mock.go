package mqtt

import (
	"strings"
	"sync"

	coremqtt "github.com/kilianp07/gridmarket/core/mqtt"
)

// Message is a payload recorded by MockClient.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// MockClient is an in-memory Client used in tests. Deliver routes a message
// to the handlers whose filter matches the topic.
type MockClient struct {
	mu        sync.Mutex
	Published []Message
	handlers  map[string]coremqtt.Handler
	FailWith  error
}

func NewMockClient() *MockClient {
	return &MockClient{handlers: make(map[string]coremqtt.Handler)}
}

func (m *MockClient) Publish(topic string, payload []byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Published = append(m.Published, Message{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

func (m *MockClient) Subscribe(topic string, h coremqtt.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = h
	return nil
}

func (m *MockClient) Disconnect() {}

// Subscribed reports whether a handler is registered for filter.
func (m *MockClient) Subscribed(filter string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[filter]
	return ok
}

// Deliver simulates an incoming message.
func (m *MockClient) Deliver(topic string, payload []byte) {
	m.mu.Lock()
	var hs []coremqtt.Handler
	for filter, h := range m.handlers {
		if Match(filter, topic) {
			hs = append(hs, h)
		}
	}
	m.mu.Unlock()
	for _, h := range hs {
		h(topic, payload)
	}
}

// Messages returns the recorded publications on topic.
func (m *MockClient) Messages(topic string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.Published {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

// Match reports whether topic matches an MQTT filter with + and # wildcards.
func Match(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
