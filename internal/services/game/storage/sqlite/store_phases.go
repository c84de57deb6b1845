package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/phase"
	"github.com/tsukino/jinro/internal/services/game/storage"
)

const phaseColumns = "id, game_id, phase, day_count, phase_results, started_at, ended_at"

func scanPhase(row rowScanner) (phase.History, error) {
	var h phase.History
	var phaseType string
	var resultsRaw []byte
	var startedAt int64
	var endedAt sql.NullInt64

	err := row.Scan(&h.ID, &h.GameID, &phaseType, &h.DayCount, &resultsRaw,
		&startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return phase.History{}, storage.ErrNotFound
	}
	if err != nil {
		return phase.History{}, fmt.Errorf("scan phase row: %w", err)
	}

	results, err := phase.DecodeResult(resultsRaw)
	if err != nil {
		return phase.History{}, err
	}

	h.Phase = phase.Type(phaseType)
	h.Results = results
	h.StartedAt = fromMillis(startedAt)
	h.EndedAt = fromNullMillis(endedAt)
	return h, nil
}

func (s *Store) listPhases(ctx context.Context, query string, args ...any) ([]phase.History, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	var phases []phase.History
	for rows.Next() {
		h, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		phases = append(phases, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phase rows: %w", err)
	}
	return phases, nil
}

// StartPhase opens a new phase entry. Callers check FindCurrentPhase first;
// the store does not prevent a second open entry.
func (s *Store) StartPhase(ctx context.Context, gameID string, t phase.Type, day int, startTime time.Time) (phase.History, error) {
	if strings.TrimSpace(gameID) == "" {
		return phase.History{}, apperrors.New(apperrors.CodeGameIDEmpty, "game id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO phase_history (game_id, phase, day_count, started_at)
VALUES (?, ?, ?, ?)`,
		gameID, string(t), day, toMillis(startTime))
	if err != nil {
		return phase.History{}, fmt.Errorf("insert phase: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return phase.History{}, fmt.Errorf("phase insert id: %w", err)
	}
	return s.GetPhase(ctx, id)
}

// GetPhase returns a phase entry by row id, or ErrNotFound.
func (s *Store) GetPhase(ctx context.Context, id int64) (phase.History, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+phaseColumns+" FROM phase_history WHERE id = ?", id)
	return scanPhase(row)
}

// ListPhasesByGame returns the game timeline ordered by day, then start.
func (s *Store) ListPhasesByGame(ctx context.Context, gameID string) ([]phase.History, error) {
	return s.listPhases(ctx,
		"SELECT "+phaseColumns+" FROM phase_history WHERE game_id = ? ORDER BY day_count, started_at, id",
		gameID)
}

// ListPhasesByDay returns one day's phases in start order.
func (s *Store) ListPhasesByDay(ctx context.Context, gameID string, day int) ([]phase.History, error) {
	return s.listPhases(ctx,
		"SELECT "+phaseColumns+" FROM phase_history WHERE game_id = ? AND day_count = ? ORDER BY started_at, id",
		gameID, day)
}

// ListPhasesByType returns phases of one type, optionally for one day.
func (s *Store) ListPhasesByType(ctx context.Context, gameID string, t phase.Type, day *int) ([]phase.History, error) {
	query := "SELECT " + phaseColumns + " FROM phase_history WHERE game_id = ? AND phase = ?"
	args := []any{gameID, string(t)}
	if day != nil {
		query += " AND day_count = ?"
		args = append(args, *day)
	}
	query += " ORDER BY day_count, started_at, id"
	return s.listPhases(ctx, query, args...)
}

// ListPhasesByDayRange returns the timeline slice between startDay and endDay
// inclusive.
func (s *Store) ListPhasesByDayRange(ctx context.Context, gameID string, startDay, endDay int) ([]phase.History, error) {
	return s.listPhases(ctx, `
SELECT `+phaseColumns+` FROM phase_history
WHERE game_id = ? AND day_count >= ? AND day_count <= ?
ORDER BY day_count, started_at, id`,
		gameID, startDay, endDay)
}

// FindCurrentPhase returns the latest open entry, or ErrNotFound when no
// phase is in progress.
func (s *Store) FindCurrentPhase(ctx context.Context, gameID string) (phase.History, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+phaseColumns+` FROM phase_history
WHERE game_id = ? AND ended_at IS NULL
ORDER BY started_at DESC, id DESC
LIMIT 1`,
		gameID)
	return scanPhase(row)
}

// FindLatestCompletedPhase returns the most recently closed entry, or
// ErrNotFound when nothing has closed yet.
func (s *Store) FindLatestCompletedPhase(ctx context.Context, gameID string) (phase.History, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+phaseColumns+` FROM phase_history
WHERE game_id = ? AND ended_at IS NOT NULL
ORDER BY ended_at DESC, id DESC
LIMIT 1`,
		gameID)
	return scanPhase(row)
}

// UpdatePhaseHistory merges the present fields of upd over a phase entry.
func (s *Store) UpdatePhaseHistory(ctx context.Context, id int64, upd storage.HistoryUpdate) (phase.History, error) {
	current, err := s.GetPhase(ctx, id)
	if err != nil {
		return phase.History{}, err
	}

	var sets []string
	var args []any
	if upd.EndedAt.Set {
		sets = append(sets, "ended_at = ?")
		args = append(args, toNullMillis(upd.EndedAt.Value))
	}
	if upd.Results.Set {
		resultsRaw, err := phase.EncodeResult(upd.Results.Value)
		if err != nil {
			return phase.History{}, err
		}
		var resultsArg any
		if resultsRaw != nil {
			resultsArg = string(resultsRaw)
		}
		sets = append(sets, "phase_results = ?")
		args = append(args, resultsArg)
	}

	if len(sets) == 0 {
		return current, nil
	}

	args = append(args, id)
	query := "UPDATE phase_history SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return phase.History{}, fmt.Errorf("update phase: %w", err)
	}

	return s.GetPhase(ctx, id)
}

// EndPhase closes an entry exactly once, attaching its results. The open
// guard in the WHERE clause makes a repeat call report false and leaves the
// first closure intact.
func (s *Store) EndPhase(ctx context.Context, id int64, endTime time.Time, results phase.Result) (bool, error) {
	resultsRaw, err := phase.EncodeResult(results)
	if err != nil {
		return false, err
	}
	var resultsArg any
	if resultsRaw != nil {
		resultsArg = string(resultsRaw)
	}

	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE phase_history SET ended_at = ?, phase_results = ?
WHERE id = ? AND ended_at IS NULL`,
		toMillis(endTime), resultsArg, id)
	if err != nil {
		return false, fmt.Errorf("end phase: %w", err)
	}
	return rowsChanged(res)
}

// IsPhaseCompleted reports whether a closed entry exists for the key, used to
// prevent re-entering a finished phase.
func (s *Store) IsPhaseCompleted(ctx context.Context, gameID string, t phase.Type, day int) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT 1 FROM phase_history
WHERE game_id = ? AND phase = ? AND day_count = ? AND ended_at IS NOT NULL
LIMIT 1`,
		gameID, string(t), day).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query phase completed: %w", err)
	}
	return true, nil
}

// FindIncompletePhases lists open entries for crash-recovery sweeps. An empty
// gameID sweeps every game.
func (s *Store) FindIncompletePhases(ctx context.Context, gameID string) ([]phase.History, error) {
	if gameID == "" {
		return s.listPhases(ctx,
			"SELECT "+phaseColumns+" FROM phase_history WHERE ended_at IS NULL ORDER BY started_at, id")
	}
	return s.listPhases(ctx,
		"SELECT "+phaseColumns+" FROM phase_history WHERE game_id = ? AND ended_at IS NULL ORDER BY started_at, id",
		gameID)
}

// GetPhaseDuration returns ended minus started in whole seconds, or nil while
// the phase is still open.
func (s *Store) GetPhaseDuration(ctx context.Context, id int64) (*int64, error) {
	h, err := s.GetPhase(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.EndedAt == nil {
		return nil, nil
	}
	seconds := int64(h.EndedAt.Sub(h.StartedAt).Round(time.Second) / time.Second)
	return &seconds, nil
}

// GetGameStats aggregates the phase history of a game.
func (s *Store) GetGameStats(ctx context.Context, gameID string) (storage.GameStats, error) {
	stats := storage.GameStats{
		PhaseCounts: make(map[phase.Type]int),
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT phase, day_count, started_at, ended_at FROM phase_history WHERE game_id = ?", gameID)
	if err != nil {
		return storage.GameStats{}, fmt.Errorf("query game stats: %w", err)
	}
	defer rows.Close()

	var durationSum int64
	for rows.Next() {
		var phaseType string
		var day int
		var startedAt int64
		var endedAt sql.NullInt64
		if err := rows.Scan(&phaseType, &day, &startedAt, &endedAt); err != nil {
			return storage.GameStats{}, fmt.Errorf("scan game stats: %w", err)
		}
		stats.TotalPhases++
		stats.PhaseCounts[phase.Type(phaseType)]++
		if day > stats.TotalDays {
			stats.TotalDays = day
		}
		if endedAt.Valid {
			stats.CompletedPhases++
			durationSum += endedAt.Int64 - startedAt
		}
	}
	if err := rows.Err(); err != nil {
		return storage.GameStats{}, fmt.Errorf("iterate game stats: %w", err)
	}

	if stats.CompletedPhases > 0 {
		avg := int64(math.Round(float64(durationSum) / float64(stats.CompletedPhases) / 1000))
		stats.AvgPhaseDuration = &avg
	}
	return stats, nil
}

// DeletePhase removes one phase entry by row id.
func (s *Store) DeletePhase(ctx context.Context, id int64) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM phase_history WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete phase: %w", err)
	}
	return rowsChanged(res)
}

// DeletePhasesByGame purges a game's phase history and reports the row count.
func (s *Store) DeletePhasesByGame(ctx context.Context, gameID string) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM phase_history WHERE game_id = ?", gameID)
	if err != nil {
		return 0, fmt.Errorf("delete game phases: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
