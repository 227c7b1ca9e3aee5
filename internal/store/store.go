// Package store holds the single editable Metadata snapshot for the
// preview panel and mediates every read and write of it.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/lotas/tabpreview/internal/applog"
	"github.com/lotas/tabpreview/internal/types"
)

// ErrSuperseded is returned by Reresolve when a later call was issued
// before this one completed; its result was discarded.
var ErrSuperseded = errors.New("resolution superseded")

// State is the store's resolution state.
type State int

const (
	Unresolved State = iota
	Resolving
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Resolver produces a fresh Metadata record.
type Resolver interface {
	Resolve(ctx context.Context) (*types.Metadata, error)
}

// Store owns the Metadata snapshot. Snapshots are never mutated in
// place: every change swaps in a new value.
type Store struct {
	res Resolver

	mu    sync.Mutex
	snap  *types.Metadata
	state State
	err   error
	gen   uint64
	subs  []chan struct{}
}

// New creates an unresolved Store.
func New(res Resolver) *Store {
	return &Store{res: res}
}

// Current returns a copy of the snapshot, or nil if none has been
// resolved yet.
func (s *Store) Current() *types.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil
	}
	m := *s.snap
	return &m
}

// State returns the current resolution state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the most recent completed resolution, or nil
// if it succeeded.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetField replaces the snapshot with a copy that has f set to value.
// Without a snapshot there is nothing to edit and the call is a no-op.
func (s *Store) SetField(f types.Field, value string) {
	s.mu.Lock()
	if s.snap == nil {
		s.mu.Unlock()
		return
	}
	next := s.snap.With(f, value)
	s.snap = &next
	s.mu.Unlock()
	s.notify()
}

// Reresolve runs the resolver and replaces the snapshot with its result,
// discarding unsaved edits. The previous snapshot stays visible while the
// resolver runs and is kept if it fails. If another Reresolve is issued
// before this one finishes, this result is dropped and ErrSuperseded is
// returned.
func (s *Store) Reresolve(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = Resolving
	s.mu.Unlock()
	s.notify()

	m, err := s.res.Resolve(ctx)

	s.mu.Lock()
	if gen != s.gen {
		latest := s.gen
		s.mu.Unlock()
		applog.Info("store.stale", "gen", gen, "latest", latest)
		return ErrSuperseded
	}
	if err != nil {
		s.state = Failed
		s.err = err
	} else {
		next := *m
		s.snap = &next
		s.state = Resolved
		s.err = nil
	}
	s.mu.Unlock()
	s.notify()
	return err
}

// Subscribe returns a channel that receives a value after every change.
// Notifications are coalesced; a slow reader sees at least one pending
// signal, never a backlog.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := s.subs
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
