package lifecycle

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/gridmarket/core/bidding"
	"github.com/kilianp07/gridmarket/core/demand"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/core/scenario"
)

// Room is the authoritative state of one game. Every field is guarded by mu;
// the manager is the only writer.
type Room struct {
	mu      sync.Mutex
	game    model.Game
	book    *bidding.Book
	effects scenario.Effects
	avail   map[string][model.PeriodsPerRound]float64
	outage  *model.ForcedOutage
	demand  *demand.Model
	rng     *rand.Rand
	// gen changes whenever a running timer must be ignored.
	gen       uint64
	stopTimer func()
}

// ID returns the game id.
func (r *Room) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.ID
}

// Snapshot returns a deep copy of the game.
func (r *Room) Snapshot() model.Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Clone()
}

func (r *Room) phaseAndUpdate() (model.Phase, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Phase, r.game.UpdatedAt
}

// GameStore keeps the live games of the process.
type GameStore interface {
	Put(r *Room)
	Get(id string) (*Room, bool)
	Delete(id string)
	List() []*Room
}

// MemoryStore is a GameStore backed by a map.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: map[string]*Room{}}
}

func (s *MemoryStore) Put(r *Room) {
	id := r.ID()
	s.mu.Lock()
	s.rooms[id] = r
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.rooms, id)
	s.mu.Unlock()
}

// List returns rooms ordered by game id.
func (s *MemoryStore) List() []*Room {
	s.mu.RLock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Room, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.rooms[id])
	}
	s.mu.RUnlock()
	return out
}
