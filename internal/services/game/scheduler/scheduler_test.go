package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tsukino/jinro/internal/services/game/domain/game"
)

type fakeFinder struct {
	mu    sync.Mutex
	games []game.Game
	err   error
	calls int
}

func (f *fakeFinder) FindTimedOutGames(ctx context.Context) ([]game.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.games, f.err
}

func (f *fakeFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNewValidation(t *testing.T) {
	handler := func(context.Context, game.Game) {}

	if _, err := New(nil, handler, time.Second); err == nil {
		t.Error("expected error for nil finder")
	}
	if _, err := New(&fakeFinder{}, nil, time.Second); err == nil {
		t.Error("expected error for nil handler")
	}
	if _, err := New(&fakeFinder{}, handler, 0); err != nil {
		t.Errorf("zero interval should default, got %v", err)
	}
}

func TestPollerHandsOffTimedOutGames(t *testing.T) {
	finder := &fakeFinder{
		games: []game.Game{{ID: "game-1"}, {ID: "game-2"}},
	}

	var mu sync.Mutex
	var seen []string
	handler := func(_ context.Context, g game.Game) {
		mu.Lock()
		seen = append(seen, g.ID)
		mu.Unlock()
	}

	p, err := New(finder, handler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start poller: %v", err)
	}
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("handler saw %d games, want at least 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[0] != "game-1" || seen[1] != "game-2" {
		t.Errorf("seen = %v, want game-1 then game-2", seen[:2])
	}
}

func TestPollerSurvivesFinderErrors(t *testing.T) {
	finder := &fakeFinder{err: errors.New("db gone")}

	handler := func(context.Context, game.Game) {
		t.Error("handler should not run when the finder fails")
	}

	p, err := New(finder, handler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start poller: %v", err)
	}
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for finder.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("finder called %d times, want at least 2", finder.callCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPollerStop(t *testing.T) {
	finder := &fakeFinder{}
	p, err := New(finder, func(context.Context, game.Game) {}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start poller: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("stop poller: %v", err)
	}

	calls := finder.callCount()
	time.Sleep(50 * time.Millisecond)
	if finder.callCount() != calls {
		t.Error("poller kept sweeping after Stop")
	}
}
