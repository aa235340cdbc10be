package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

type inlineSpawner struct{}

func (inlineSpawner) Spawn(fn func()) { go fn() }

func TestMutateCoalescesDuplicateEvents(t *testing.T) {
	s := New(nil)

	var received []MutationEvent
	var mu sync.Mutex
	s.Subscribe([]MutationEvent{EventRepos}, func(e MutationEvent) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	err := s.Mutate(func(st *State, notify NotifyFunc) {
		notify(EventRepos)
		notify(EventRepos)
		notify(EventRepos)
	})
	if err != nil {
		t.Fatalf("Mutate returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected exactly one coalesced notification, got %d: %v", len(received), received)
	}
}

func TestMutateDetectsRecursion(t *testing.T) {
	s := New(nil)

	err := s.Mutate(func(st *State, notify NotifyFunc) {
		nested := s.Mutate(func(*State, NotifyFunc) {})
		if nested != ErrRecursiveMutation {
			t.Errorf("expected ErrRecursiveMutation from nested Mutate, got %v", nested)
		}
	})
	if err != nil {
		t.Fatalf("outer Mutate returned error: %v", err)
	}
}

func TestWithStateDetectsRecursiveMutate(t *testing.T) {
	s := New(nil)

	err := s.WithState(func(st *State) {
		nested := s.Mutate(func(*State, NotifyFunc) {})
		if nested != ErrRecursiveMutation {
			t.Errorf("expected ErrRecursiveMutation, got %v", nested)
		}
	})
	if err != nil {
		t.Fatalf("WithState returned error: %v", err)
	}
}

func TestConcurrentWithStateDoesNotCollide(t *testing.T) {
	s := New(nil)

	const goroutines = 32
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.WithState(func(st *State) {
				time.Sleep(time.Millisecond)
			})
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: expected concurrent WithState calls from distinct goroutines to succeed, got %v", i, err)
		}
	}
}

func TestMutatePanicPoisonsStore(t *testing.T) {
	s := New(nil)

	_ = s.Mutate(func(*State, NotifyFunc) {
		panic("boom")
	})

	if s.Poisoned() == nil {
		t.Fatalf("expected store to be poisoned after panic")
	}

	if err := s.Mutate(func(*State, NotifyFunc) {}); err == nil {
		t.Fatalf("expected subsequent Mutate to fail once poisoned")
	}
	if err := s.WithState(func(*State) {}); err == nil {
		t.Fatalf("expected subsequent WithState to fail once poisoned")
	}
}

func TestWaitForResolvesAfterMatchingEvent(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	fut := s.WaitFor(ctx, inlineSpawner{}, func(st *State) bool {
		return st.Lifecycle.AppVisibility == AppHidden
	})

	err := s.Mutate(func(st *State, notify NotifyFunc) {
		st.Lifecycle.AppVisibility = AppHidden
		notify(EventLifecycle)
	})
	if err != nil {
		t.Fatalf("Mutate returned error: %v", err)
	}

	if err := fut.Wait(ctx); err != nil {
		t.Fatalf("expected WaitFor to resolve, got error: %v", err)
	}
}

func TestWaitForCancellation(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	fut := s.WaitFor(ctx, inlineSpawner{}, func(st *State) bool { return false })
	cancel()

	if err := fut.Wait(context.Background()); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestNextIdMonotonicAcrossReset(t *testing.T) {
	st := NewState()
	first := st.Transfers.NextTransferId()
	second := st.Transfers.NextTransferId()
	if second <= first {
		t.Fatalf("expected monotonic ids, got %d then %d", first, second)
	}

	st.reset()
	third := st.Transfers.NextTransferId()
	if third <= second {
		t.Fatalf("expected reset() to preserve the counter, got %d after %d", third, second)
	}
}
