package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakePruner) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestLoginCleanup_PruneUsesRetention(t *testing.T) {
	p := &fakePruner{deleted: 4}
	w := NewLoginCleanup(p, zap.NewNop(), time.Hour, 48*time.Hour)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if got := w.Prune(); got != 4 {
		t.Errorf("Prune() = %d, want 4", got)
	}
	want := now.Add(-48 * time.Hour)
	if len(p.cutoffs) != 1 || !p.cutoffs[0].Equal(want) {
		t.Errorf("cutoffs = %v, want [%v]", p.cutoffs, want)
	}
}

func TestLoginCleanup_PruneErrorIsSwallowed(t *testing.T) {
	p := &fakePruner{err: errors.New("boom")}
	w := NewLoginCleanup(p, nil, time.Hour, time.Hour)

	if got := w.Prune(); got != 0 {
		t.Errorf("Prune() = %d, want 0 on error", got)
	}
}

func TestLoginCleanup_PruneContextReturnsError(t *testing.T) {
	boom := errors.New("boom")
	p := &fakePruner{deleted: 7, err: boom}
	w := NewLoginCleanup(p, zap.NewNop(), time.Hour, time.Hour)

	n, err := w.PruneContext(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("PruneContext error = %v, want %v", err, boom)
	}
	if n != 0 {
		t.Errorf("PruneContext count = %d, want 0 on error", n)
	}
}

func TestLoginCleanup_StartRunsImmediatelyAndStops(t *testing.T) {
	p := &fakePruner{}
	w := NewLoginCleanup(p, zap.NewNop(), time.Hour, time.Hour)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if p.calls() != 1 {
		t.Errorf("expected one prune before the first tick, got %d", p.calls())
	}
}
