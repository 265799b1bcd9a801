package bet

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Persister durably writes the full bet collection for one user. The store
// calls it under its own lock on every mutation, so a restart resumes with
// the exact prior state.
type Persister func(ctx context.Context, bets []Bet) error

// Store is the authoritative in-memory bet list for the active user.
// All mutations are serialized through its mutex and persisted in full
// before the mutating call returns. Newest entries sit at the front.
type Store struct {
	mu      sync.Mutex
	bets    []Bet
	persist Persister
}

// NewStore creates a store seeded with an existing collection (persisted
// state loaded at login). persist may be nil in tests.
func NewStore(bets []Bet, persist Persister) *Store {
	s := &Store{persist: persist}
	s.bets = append(s.bets, bets...)
	return s
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	snapshot := make([]Bet, len(s.bets))
	copy(snapshot, s.bets)
	if err := s.persist(ctx, snapshot); err != nil {
		return fmt.Errorf("persist bets: %w", err)
	}
	return nil
}

// List returns a copy of the collection, newest first.
func (s *Store) List() []Bet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bet, len(s.bets))
	copy(out, s.bets)
	return out
}

// Get returns the bet with the given id.
func (s *Store) Get(id string) (Bet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bets {
		if b.ID == id {
			return b, true
		}
	}
	return Bet{}, false
}

// Len reports the number of bets in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bets)
}

// Add prepends a single bet.
func (s *Store) Add(ctx context.Context, b Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bets = append([]Bet{b}, s.bets...)
	return s.persistLocked(ctx)
}

// AddBatch prepends an extraction batch as a group, preserving the batch's
// relative order.
func (s *Store) AddBatch(ctx context.Context, batch []Bet) error {
	if len(batch) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make([]Bet, 0, len(batch)+len(s.bets))
	merged = append(merged, batch...)
	merged = append(merged, s.bets...)
	s.bets = merged
	return s.persistLocked(ctx)
}

// Update merges the patch into the bet with the given id. Unknown ids are
// a no-op, mirroring the partial-update contract.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bets {
		if s.bets[i].ID == id {
			p.apply(&s.bets[i])
			return s.persistLocked(ctx)
		}
	}
	return nil
}

// SetResult records a grading action. Idempotent: re-setting the same
// result leaves the bet unchanged and skips the persistence write.
func (s *Store) SetResult(ctx context.Context, id string, r Result) error {
	if !r.Valid() {
		return fmt.Errorf("invalid result %q", r)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bets {
		if s.bets[i].ID == id {
			if s.bets[i].Result == r {
				return nil
			}
			s.bets[i].Result = r
			return s.persistLocked(ctx)
		}
	}
	return nil
}

// MarkPosted flips a bet to its terminal posted state (posted=true,
// auto-post disabled). Returns false when the bet is unknown or was
// already posted, so callers can detect a duplicate transition.
func (s *Store) MarkPosted(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bets {
		if s.bets[i].ID == id {
			if s.bets[i].Posted {
				return false, nil
			}
			s.bets[i].Posted = true
			s.bets[i].AutoPost = false
			return true, s.persistLocked(ctx)
		}
	}
	return false, nil
}

// ScheduleAll enables auto-posting for every unposted bet whose match time
// is still in the future. Returns the number of bets armed.
func (s *Store) ScheduleAll(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	armed := 0
	for i := range s.bets {
		b := &s.bets[i]
		if !b.Posted && b.MatchTime != nil && b.MatchTime.After(now) && !b.AutoPost {
			b.AutoPost = true
			armed++
		}
	}
	if armed == 0 {
		return 0, nil
	}
	return armed, s.persistLocked(ctx)
}

// Delete removes the bet with the given id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bets {
		if s.bets[i].ID == id {
			s.bets = append(s.bets[:i], s.bets[i+1:]...)
			return s.persistLocked(ctx)
		}
	}
	return nil
}

// Clear empties the collection.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bets = nil
	return s.persistLocked(ctx)
}
