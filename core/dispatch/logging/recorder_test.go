package logging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

type memStore struct {
	NopStore
	mu   sync.Mutex
	recs []LogRecord
	err  error
}

func (m *memStore) Append(_ context.Context, r LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func TestRecorderAppendsSettledRounds(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	defer bus.Close()
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartRecorder(ctx, bus, store, nil)

	rec := record("g1", 2, time.Unix(50, 0))
	rec.Result.SettledAt = rec.Timestamp
	bus.Publish(events.PhaseChanged{Game: "g1"})
	bus.Publish(events.RoundSettled{Game: "g1", Mode: "beginner", Result: rec.Result})

	require.Eventually(t, func() bool { return store.len() == 1 }, time.Second, 10*time.Millisecond)
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, rec, store.recs[0])
}

func TestRecorderSurvivesStoreErrors(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	store := &memStore{err: errors.New("disk full")}
	StartRecorder(context.Background(), bus, store, nil)
	bus.Publish(events.RoundSettled{Game: "g1"})
	bus.Publish(events.RoundSettled{Game: "g1"})
	// closing the bus stops the recorder
	bus.Close()
	assert.Zero(t, store.len())
}
