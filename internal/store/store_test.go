package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lotas/tabpreview/internal/resolver"
	"github.com/lotas/tabpreview/internal/types"
)

type result struct {
	m   *types.Metadata
	err error
}

// scriptedResolver hands out results in call order. A call blocks until
// its gate channel is closed, when one is configured.
type scriptedResolver struct {
	results []result
	gates   []chan struct{}
	calls   int
	started chan int
}

func (r *scriptedResolver) Resolve(ctx context.Context) (*types.Metadata, error) {
	i := r.calls
	r.calls++
	if r.started != nil {
		r.started <- i
	}
	if i < len(r.gates) && r.gates[i] != nil {
		<-r.gates[i]
	}
	res := r.results[i]
	return res.m, res.err
}

var example = &types.Metadata{
	URL:         "https://example.com/page",
	Title:       "Example",
	Description: "",
	Favicon:     "https://example.com/favicon.ico",
}

func TestSetFieldUnresolvedIsNoop(t *testing.T) {
	s := New(&scriptedResolver{})
	s.SetField(types.FieldTitle, "X")
	if got := s.Current(); got != nil {
		t.Errorf("Current() = %+v, want nil", got)
	}
	if s.State() != Unresolved {
		t.Errorf("State() = %v, want unresolved", s.State())
	}
}

func TestSetFieldAfterResolve(t *testing.T) {
	s := New(&scriptedResolver{results: []result{{m: example}}})
	if err := s.Reresolve(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.SetField(types.FieldTitle, "X")

	got := s.Current()
	want := *example
	want.Title = "X"
	if *got != want {
		t.Errorf("got %+v, want %+v", *got, want)
	}
	if example.Title != "Example" {
		t.Error("resolver's record was mutated")
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	s := New(&scriptedResolver{results: []result{{m: example}}})
	s.Reresolve(context.Background())
	c := s.Current()
	c.Title = "changed"
	if s.Current().Title != "Example" {
		t.Error("mutating Current() result changed the snapshot")
	}
}

func TestDescriptionEmptyIsResolved(t *testing.T) {
	s := New(&scriptedResolver{results: []result{{m: example}}})
	s.Reresolve(context.Background())
	m := s.Current()
	if m == nil {
		t.Fatal("expected snapshot")
	}
	if m.Description != "" || s.State() != Resolved {
		t.Errorf("got description %q state %v", m.Description, s.State())
	}
}

func TestReresolveDiscardsEdits(t *testing.T) {
	fresh := &types.Metadata{URL: "https://example.com/other", Title: "Other"}
	s := New(&scriptedResolver{results: []result{{m: example}, {m: fresh}}})
	s.Reresolve(context.Background())
	s.SetField(types.FieldDescription, "edited")
	s.Reresolve(context.Background())
	if got := s.Current(); *got != *fresh {
		t.Errorf("got %+v, want %+v", *got, *fresh)
	}
}

func TestReresolveFailureKeepsSnapshot(t *testing.T) {
	s := New(&scriptedResolver{results: []result{{m: example}, {err: resolver.ErrNoActiveTab}}})
	s.Reresolve(context.Background())
	s.SetField(types.FieldTitle, "kept")

	err := s.Reresolve(context.Background())
	if !errors.Is(err, resolver.ErrNoActiveTab) {
		t.Fatalf("err = %v, want ErrNoActiveTab", err)
	}
	if s.State() != Failed {
		t.Errorf("State() = %v, want failed", s.State())
	}
	if got := s.Current(); got == nil || got.Title != "kept" {
		t.Errorf("snapshot not retained: %+v", got)
	}
	if !errors.Is(s.Err(), resolver.ErrNoActiveTab) {
		t.Errorf("Err() = %v", s.Err())
	}
}

func TestFirstResolveFailure(t *testing.T) {
	s := New(&scriptedResolver{results: []result{{err: resolver.ErrMetadataUnavailable}, {m: example}}})
	if err := s.Reresolve(context.Background()); !errors.Is(err, resolver.ErrMetadataUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if s.Current() != nil {
		t.Error("expected no snapshot after failed first resolution")
	}
	s.SetField(types.FieldTitle, "X")
	if s.Current() != nil {
		t.Error("SetField without snapshot should be a no-op")
	}

	// Retry from Failed.
	if err := s.Reresolve(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.State() != Resolved || s.Current() == nil {
		t.Errorf("retry did not resolve: state %v", s.State())
	}
}

func TestSupersededResolutionIsDiscarded(t *testing.T) {
	first := &types.Metadata{URL: "https://example.com/first", Title: "First"}
	second := &types.Metadata{URL: "https://example.com/second", Title: "Second"}
	gate := make(chan struct{})
	r := &scriptedResolver{
		results: []result{{m: first}, {m: second}},
		gates:   []chan struct{}{gate, nil},
		started: make(chan int, 2),
	}
	s := New(r)

	firstErr := make(chan error, 1)
	go func() { firstErr <- s.Reresolve(context.Background()) }()
	<-r.started // first call is now blocked on gate

	if err := s.Reresolve(context.Background()); err != nil {
		t.Fatalf("second: %v", err)
	}
	close(gate)

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("first err = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first resolution")
	}

	if got := s.Current(); got == nil || got.Title != "Second" {
		t.Errorf("Current() = %+v, want second result", got)
	}
	if s.State() != Resolved {
		t.Errorf("State() = %v, want resolved", s.State())
	}
}

func TestPreviousSnapshotVisibleWhileResolving(t *testing.T) {
	gate := make(chan struct{})
	r := &scriptedResolver{
		results: []result{{m: example}, {m: example}},
		gates:   []chan struct{}{nil, gate},
		started: make(chan int, 2),
	}
	s := New(r)
	s.Reresolve(context.Background())
	<-r.started

	done := make(chan struct{})
	go func() {
		s.Reresolve(context.Background())
		close(done)
	}()
	<-r.started

	if s.State() != Resolving {
		t.Errorf("State() = %v, want resolving", s.State())
	}
	if s.Current() == nil {
		t.Error("snapshot disappeared while resolving")
	}
	close(gate)
	<-done
}

func TestSubscribeNotifies(t *testing.T) {
	s := New(&scriptedResolver{results: []result{{m: example}}})
	ch := s.Subscribe()
	s.Reresolve(context.Background())

	select {
	case <-ch:
	default:
		t.Fatal("expected a notification after resolve")
	}

	s.SetField(types.FieldTitle, "X")
	select {
	case <-ch:
	default:
		t.Fatal("expected a notification after SetField")
	}
}
