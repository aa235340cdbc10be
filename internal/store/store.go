// Package store implements the vault core's single-writer reactive state
// tree: Mutate/WithState access, mutation-event coalescing, and subscriber
// fan-out, grounded on the teacher's tick-scoped world-state aggregation
// (internal/state/world.go) and generalized with the per-subscriber fan-out
// shape common across the example pack's reactive-store implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrRecursiveMutation is returned when a goroutine already inside a Mutate
// or WithState call attempts to re-enter the store — the single most common
// bug source per the design notes (§9).
var ErrRecursiveMutation = errors.New("store: recursive mutate/with_state call")

// NotifyFunc is passed into a Mutate closure so it can emit MutationEvents.
// Duplicate events within one Mutate call coalesce into a single delivery.
type NotifyFunc func(MutationEvent)

// MutationHook is invoked once per distinct event emitted during a Mutate
// call, still under the writer lock, before it is released and dispatched
// to subscribers. Wiring code can use it to let services recompute derived
// state synchronously within the same mutation; cmd/vaultd installs none.
type MutationHook func(event MutationEvent, state *State, mutation *MutationState)

// Store is the exclusive owner of all vault-core state.
type Store struct {
	mu    sync.RWMutex
	state State

	poisonedMu sync.RWMutex
	poisonErr  error

	active sync.Map // goroutine id -> struct{}; detects same-goroutine recursion

	hook MutationHook

	subMu   sync.Mutex
	nextSub uint64
	subs    map[uint64]*subscription
}

type subscription struct {
	id       uint64
	interest map[MutationEvent]struct{} // nil interest == all events
	callback func(MutationEvent)
}

// New constructs an empty Store. hook may be nil.
func New(hook MutationHook) *Store {
	if hook == nil {
		hook = func(MutationEvent, *State, *MutationState) {}
	}
	return &Store{
		state: *NewState(),
		hook:  hook,
		subs:  make(map[uint64]*subscription),
	}
}

// goroutineID extracts a cheap, unique-enough identifier for the calling
// goroutine from its stack trace header ("goroutine 123 [running]:"), used
// only to detect same-goroutine store re-entrancy — never for scheduling.
// The header's first space separates the literal word "goroutine" from the
// numeric id, so the id itself is the run of digits starting right after
// that space — not everything before the first space (which is always just
// "goroutine").
func goroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := buf[:n]

	start := -1
	for i, b := range line {
		if b == ' ' {
			start = i + 1
			break
		}
	}
	if start < 0 || start >= len(line) {
		return string(line)
	}

	end := start
	for end < len(line) && line[end] >= '0' && line[end] <= '9' {
		end++
	}
	if end == start {
		return string(line)
	}
	return string(line[start:end])
}

func (s *Store) enter() error {
	if err := s.Poisoned(); err != nil {
		return err
	}
	id := goroutineID()
	if _, loaded := s.active.LoadOrStore(id, struct{}{}); loaded {
		return ErrRecursiveMutation
	}
	return nil
}

func (s *Store) leave() {
	s.active.Delete(goroutineID())
}

// Poisoned reports the store's fatal error, if a prior Mutate call panicked.
func (s *Store) Poisoned() error {
	s.poisonedMu.RLock()
	defer s.poisonedMu.RUnlock()
	return s.poisonErr
}

func (s *Store) poison(cause any) {
	s.poisonedMu.Lock()
	defer s.poisonedMu.Unlock()
	if s.poisonErr == nil {
		s.poisonErr = fmt.Errorf("store poisoned: %v", cause)
	}
}

// Mutate acquires the exclusive writer, runs f with a mutable state
// reference and a notify callback, then — still under the lock — invokes
// the mutation hook once per distinct event, before releasing the lock and
// dispatching coalesced events to subscribers.
func (s *Store) Mutate(f func(*State, NotifyFunc)) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	s.mu.Lock()

	var (
		order    []MutationEvent
		seen     = make(map[MutationEvent]struct{})
		panicked any
	)
	notify := func(e MutationEvent) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		order = append(order, e)
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = r
			}
		}()
		f(&s.state, notify)
	}()

	if panicked != nil {
		s.poison(panicked)
		s.mu.Unlock()
		return s.Poisoned()
	}

	mutationState := newMutationState()
	for _, event := range order {
		s.hook(event, &s.state, mutationState)
	}

	s.mu.Unlock()

	s.dispatch(order)
	return nil
}

// WithState acquires a shared reader and runs f against the current state.
func (s *Store) WithState(f func(*State)) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	s.mu.RLock()
	defer s.mu.RUnlock()
	f(&s.state)
	return nil
}

// Reset restores every slice to its defaults under the writer lock,
// preserving monotonic NextId counters, and notifies every MutationEvent so
// subscribers invalidate whatever derived state they hold. Called by
// internal/repos.Service.Logout after every repo has been locked (§4.E).
func (s *Store) Reset() error {
	return s.Mutate(func(st *State, notify NotifyFunc) {
		st.reset()
		for _, e := range allEvents {
			notify(e)
		}
	})
}

// Subscribe registers interest in a set of events (nil/empty means every
// event) and returns a SubscriptionId usable with Unsubscribe. Unsubscribe is
// idempotent.
func (s *Store) Subscribe(events []MutationEvent, callback func(MutationEvent)) uint64 {
	interest := map[MutationEvent]struct{}(nil)
	if len(events) > 0 {
		interest = make(map[MutationEvent]struct{}, len(events))
		for _, e := range events {
			interest[e] = struct{}{}
		}
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = &subscription{id: id, interest: interest, callback: callback}
	return id
}

// Unsubscribe removes a subscription; calling it more than once is a no-op.
func (s *Store) Unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subs, id)
}

func (s *Store) dispatch(events []MutationEvent) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, event := range events {
		for _, sub := range subs {
			if sub.interest != nil {
				if _, ok := sub.interest[event]; !ok {
					continue
				}
			}
			sub.callback(event)
		}
	}
}

// Future is returned by WaitFor and resolves once its predicate is satisfied
// or ctx is cancelled.
type Future struct {
	done chan error
}

// Wait blocks until the future resolves or ctx is cancelled.
func (fut *Future) Wait(ctx context.Context) error {
	select {
	case err := <-fut.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawner is the minimal surface WaitFor needs from runtime.Runtime, kept
// narrow here to avoid an import cycle with internal/runtime.
type Spawner interface {
	Spawn(fn func())
}

// WaitFor subscribes to every event and resolves the returned Future the
// first time predicate(state) is true after a subscribed event fires.
// Cancelling ctx removes the subscription.
func (s *Store) WaitFor(ctx context.Context, rt Spawner, predicate func(*State) bool) *Future {
	fut := &Future{done: make(chan error, 1)}
	trigger := make(chan struct{}, 1)

	var subID uint64
	subID = s.Subscribe(nil, func(MutationEvent) {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})

	rt.Spawn(func() {
		defer s.Unsubscribe(subID)
		for {
			var matched bool
			if err := s.WithState(func(st *State) { matched = predicate(st) }); err != nil {
				fut.done <- err
				return
			}
			if matched {
				fut.done <- nil
				return
			}
			select {
			case <-trigger:
				continue
			case <-ctx.Done():
				fut.done <- ctx.Err()
				return
			}
		}
	})

	return fut
}
