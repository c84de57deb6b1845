package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/game"
	"github.com/tsukino/jinro/internal/services/game/storage"
)

func TestCreateGame(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	g, err := s.CreateGame(ctx, storage.NewGame{
		ID:     "game-1",
		Status: game.StatusWaiting,
		Config: testConfig(),
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	if g.ID != "game-1" {
		t.Errorf("id = %q, want game-1", g.ID)
	}
	if g.Status != game.StatusWaiting {
		t.Errorf("status = %q, want waiting", g.Status)
	}
	if g.DayCount != 0 {
		t.Errorf("day count = %d, want 0", g.DayCount)
	}
	if g.CurrentPhase != nil || g.PhaseStartTime != nil || g.PhaseTimeoutSeconds != nil || g.WinnerTeam != nil {
		t.Error("nullable fields should start nil")
	}
	if g.Config != testConfig() {
		t.Errorf("config = %+v, want %+v", g.Config, testConfig())
	}
	if g.CreatedAt.IsZero() || g.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestCreateGameEmptyID(t *testing.T) {
	s := openTempStore(t)

	_, err := s.CreateGame(context.Background(), storage.NewGame{
		ID:     "   ",
		Status: game.StatusWaiting,
		Config: testConfig(),
	})
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeGameIDEmpty {
		t.Fatalf("error = %v, want code %s", err, apperrors.CodeGameIDEmpty)
	}
}

func TestCreateGameDuplicateID(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")
	_, err := s.CreateGame(ctx, storage.NewGame{
		ID:     "game-1",
		Status: game.StatusWaiting,
		Config: testConfig(),
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestListGames(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")
	createTestGame(t, s, "game-2")

	games, err := s.ListGames(ctx)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("len = %d, want 2", len(games))
	}
	// Newest first; same-millisecond creates fall back to id order.
	if games[0].ID != "game-2" || games[1].ID != "game-1" {
		t.Errorf("order = %s, %s, want game-2, game-1", games[0].ID, games[1].ID)
	}
}

func TestListGamesByStatus(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")
	createTestGame(t, s, "game-2")
	if _, err := s.UpdateGame(ctx, "game-2", storage.GameUpdate{
		Status: storage.Some(game.StatusDayPhase),
	}); err != nil {
		t.Fatalf("update game: %v", err)
	}

	waiting, err := s.ListGamesByStatus(ctx, game.StatusWaiting)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(waiting) != 1 || waiting[0].ID != "game-1" {
		t.Errorf("waiting = %v, want only game-1", waiting)
	}
}

func TestUpdateGameMergesFields(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")

	p := game.PhaseDiscussion
	updated, err := s.UpdateGame(ctx, "game-1", storage.GameUpdate{
		Status:       storage.Some(game.StatusDayPhase),
		CurrentPhase: storage.Some(&p),
		DayCount:     storage.Some(1),
	})
	if err != nil {
		t.Fatalf("update game: %v", err)
	}

	if updated.Status != game.StatusDayPhase {
		t.Errorf("status = %q, want day_phase", updated.Status)
	}
	if updated.CurrentPhase == nil || *updated.CurrentPhase != game.PhaseDiscussion {
		t.Errorf("current phase = %v, want discussion", updated.CurrentPhase)
	}
	if updated.DayCount != 1 {
		t.Errorf("day count = %d, want 1", updated.DayCount)
	}
	if updated.Config != testConfig() {
		t.Error("untouched config should survive a partial update")
	}
}

func TestUpdateGameExplicitNil(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")
	p := game.PhaseVoting
	if _, err := s.UpdateGame(ctx, "game-1", storage.GameUpdate{
		CurrentPhase: storage.Some(&p),
	}); err != nil {
		t.Fatalf("set phase: %v", err)
	}

	updated, err := s.UpdateGame(ctx, "game-1", storage.GameUpdate{
		CurrentPhase: storage.Some[*game.Phase](nil),
	})
	if err != nil {
		t.Fatalf("clear phase: %v", err)
	}
	if updated.CurrentPhase != nil {
		t.Errorf("current phase = %v, want nil", updated.CurrentPhase)
	}
}

func TestUpdateGameNoFields(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	created := createTestGame(t, s, "game-1")
	updated, err := s.UpdateGame(ctx, "game-1", storage.GameUpdate{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Error("empty update should not re-stamp updated_at")
	}
}

func TestUpdateGameNotFound(t *testing.T) {
	s := openTempStore(t)

	_, err := s.UpdateGame(context.Background(), "missing", storage.GameUpdate{
		DayCount: storage.Some(3),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateGamePhase(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ok, err := s.UpdateGamePhase(ctx, "game-1", game.PhaseDiscussion, start, 300)
	if err != nil {
		t.Fatalf("update game phase: %v", err)
	}
	if !ok {
		t.Fatal("expected phase update to hit the row")
	}

	g, err := s.GetGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if g.CurrentPhase == nil || *g.CurrentPhase != game.PhaseDiscussion {
		t.Errorf("current phase = %v, want discussion", g.CurrentPhase)
	}
	if g.PhaseStartTime == nil || !g.PhaseStartTime.Equal(start) {
		t.Errorf("phase start = %v, want %v", g.PhaseStartTime, start)
	}
	if g.PhaseTimeoutSeconds == nil || *g.PhaseTimeoutSeconds != 300 {
		t.Errorf("timeout = %v, want 300", g.PhaseTimeoutSeconds)
	}

	ok, err = s.UpdateGamePhase(ctx, "missing", game.PhaseVoting, start, 60)
	if err != nil {
		t.Fatalf("update missing game: %v", err)
	}
	if ok {
		t.Error("expected false for missing game")
	}
}

func TestIncrementDay(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")
	for i := 0; i < 3; i++ {
		ok, err := s.IncrementDay(ctx, "game-1")
		if err != nil {
			t.Fatalf("increment day: %v", err)
		}
		if !ok {
			t.Fatal("expected increment to hit the row")
		}
	}

	g, err := s.GetGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if g.DayCount != 3 {
		t.Errorf("day count = %d, want 3", g.DayCount)
	}
}

func TestFinishGame(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")
	start := time.Now().UTC()
	if _, err := s.UpdateGamePhase(ctx, "game-1", game.PhaseVoting, start, 60); err != nil {
		t.Fatalf("enter phase: %v", err)
	}

	ok, err := s.FinishGame(ctx, "game-1", game.WinnerVillage)
	if err != nil {
		t.Fatalf("finish game: %v", err)
	}
	if !ok {
		t.Fatal("expected finish to hit the row")
	}

	g, err := s.GetGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if g.Status != game.StatusFinished {
		t.Errorf("status = %q, want finished", g.Status)
	}
	if g.WinnerTeam == nil || *g.WinnerTeam != game.WinnerVillage {
		t.Errorf("winner = %v, want village", g.WinnerTeam)
	}
	if g.CurrentPhase != nil || g.PhaseStartTime != nil || g.PhaseTimeoutSeconds != nil {
		t.Error("phase fields should be cleared on finish")
	}

	// Finishing again still matches the row; the terminal state is stable.
	ok, err = s.FinishGame(ctx, "game-1", game.WinnerVillage)
	if err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if !ok {
		t.Error("expected second finish to still hit the row")
	}
}

func TestFindTimedOutGames(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "expired")
	createTestGame(t, s, "running")
	createTestGame(t, s, "waiting")

	past := time.Now().UTC().Add(-10 * time.Minute)
	if _, err := s.UpdateGame(ctx, "expired", storage.GameUpdate{
		Status: storage.Some(game.StatusNightPhase),
	}); err != nil {
		t.Fatalf("activate expired: %v", err)
	}
	if _, err := s.UpdateGamePhase(ctx, "expired", game.PhaseAction, past, 60); err != nil {
		t.Fatalf("expire phase: %v", err)
	}

	if _, err := s.UpdateGame(ctx, "running", storage.GameUpdate{
		Status: storage.Some(game.StatusDayPhase),
	}); err != nil {
		t.Fatalf("activate running: %v", err)
	}
	if _, err := s.UpdateGamePhase(ctx, "running", game.PhaseDiscussion, time.Now().UTC(), 3600); err != nil {
		t.Fatalf("start running phase: %v", err)
	}

	timedOut, err := s.FindTimedOutGames(ctx)
	if err != nil {
		t.Fatalf("find timed out: %v", err)
	}
	if len(timedOut) != 1 || timedOut[0].ID != "expired" {
		t.Fatalf("timed out = %v, want only expired", timedOut)
	}
}

func TestDeleteGame(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	createTestGame(t, s, "game-1")
	ok, err := s.DeleteGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("delete game: %v", err)
	}
	if !ok {
		t.Fatal("expected delete to hit the row")
	}

	if _, err := s.GetGame(ctx, "game-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}

	ok, err = s.DeleteGame(ctx, "game-1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if ok {
		t.Error("expected false for already deleted game")
	}
}
