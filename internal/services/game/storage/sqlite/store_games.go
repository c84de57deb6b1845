package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/game"
	"github.com/tsukino/jinro/internal/services/game/storage"
)

const gameColumns = "id, status, current_phase, day_count, game_config, phase_start_time, phase_timeout_seconds, winner_team, created_at, updated_at"

// touchUpdatedAt re-stamps updated_at from the database clock, matching the
// second precision of the column default.
const touchUpdatedAt = "updated_at = ((strftime('%s','now')) * 1000)"

func scanGame(row rowScanner) (game.Game, error) {
	var g game.Game
	var status string
	var currentPhase, winner sql.NullString
	var configRaw []byte
	var phaseStart, timeout sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&g.ID, &status, &currentPhase, &g.DayCount, &configRaw,
		&phaseStart, &timeout, &winner, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Game{}, storage.ErrNotFound
	}
	if err != nil {
		return game.Game{}, fmt.Errorf("scan game row: %w", err)
	}

	cfg, err := game.DecodeConfig(configRaw)
	if err != nil {
		return game.Game{}, err
	}

	g.Status = game.Status(status)
	g.CurrentPhase = fromNullEnum[game.Phase](currentPhase)
	g.Config = cfg
	g.PhaseStartTime = fromNullMillis(phaseStart)
	g.PhaseTimeoutSeconds = fromNullInt(timeout)
	g.WinnerTeam = fromNullEnum[game.WinnerTeam](winner)
	g.CreatedAt = fromMillis(createdAt)
	g.UpdatedAt = fromMillis(updatedAt)
	return g, nil
}

func (s *Store) listGames(ctx context.Context, query string, args ...any) ([]game.Game, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []game.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game rows: %w", err)
	}
	return games, nil
}

// CreateGame inserts a game row; a duplicate id surfaces as ErrConflict.
func (s *Store) CreateGame(ctx context.Context, data storage.NewGame) (game.Game, error) {
	id := strings.TrimSpace(data.ID)
	if id == "" {
		return game.Game{}, apperrors.New(apperrors.CodeGameIDEmpty, "game id is required")
	}

	configRaw, err := game.EncodeConfig(data.Config)
	if err != nil {
		return game.Game{}, err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO games (id, status, current_phase, day_count, game_config, phase_start_time, phase_timeout_seconds, winner_team)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		string(data.Status),
		toNullEnum(data.CurrentPhase),
		data.DayCount,
		string(configRaw),
		toNullMillis(data.PhaseStartTime),
		toNullInt(data.PhaseTimeoutSeconds),
		toNullEnum(data.WinnerTeam),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return game.Game{}, conflict(fmt.Sprintf("game %s already exists", id), err)
		}
		return game.Game{}, fmt.Errorf("insert game: %w", err)
	}

	return s.GetGame(ctx, id)
}

// GetGame returns a game by id, or ErrNotFound.
func (s *Store) GetGame(ctx context.Context, id string) (game.Game, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+gameColumns+" FROM games WHERE id = ?", id)
	return scanGame(row)
}

// ListGames returns every game, newest first.
func (s *Store) ListGames(ctx context.Context) ([]game.Game, error) {
	return s.listGames(ctx,
		"SELECT "+gameColumns+" FROM games ORDER BY created_at DESC, id DESC")
}

// ListGamesByStatus returns games with a given status, newest first.
func (s *Store) ListGamesByStatus(ctx context.Context, status game.Status) ([]game.Game, error) {
	return s.listGames(ctx,
		"SELECT "+gameColumns+" FROM games WHERE status = ? ORDER BY created_at DESC, id DESC",
		string(status))
}

// UpdateGame merges the present fields of upd over the current row and
// re-stamps updated_at. Fields left unset keep their stored value.
func (s *Store) UpdateGame(ctx context.Context, id string, upd storage.GameUpdate) (game.Game, error) {
	current, err := s.GetGame(ctx, id)
	if err != nil {
		return game.Game{}, err
	}

	var sets []string
	var args []any
	if upd.Status.Set {
		sets = append(sets, "status = ?")
		args = append(args, string(upd.Status.Value))
	}
	if upd.CurrentPhase.Set {
		sets = append(sets, "current_phase = ?")
		args = append(args, toNullEnum(upd.CurrentPhase.Value))
	}
	if upd.DayCount.Set {
		sets = append(sets, "day_count = ?")
		args = append(args, upd.DayCount.Value)
	}
	if upd.Config.Set {
		configRaw, err := game.EncodeConfig(upd.Config.Value)
		if err != nil {
			return game.Game{}, err
		}
		sets = append(sets, "game_config = ?")
		args = append(args, string(configRaw))
	}
	if upd.PhaseStartTime.Set {
		sets = append(sets, "phase_start_time = ?")
		args = append(args, toNullMillis(upd.PhaseStartTime.Value))
	}
	if upd.PhaseTimeoutSeconds.Set {
		sets = append(sets, "phase_timeout_seconds = ?")
		args = append(args, toNullInt(upd.PhaseTimeoutSeconds.Value))
	}
	if upd.WinnerTeam.Set {
		sets = append(sets, "winner_team = ?")
		args = append(args, toNullEnum(upd.WinnerTeam.Value))
	}

	if len(sets) == 0 {
		return current, nil
	}

	sets = append(sets, touchUpdatedAt)
	args = append(args, id)
	query := "UPDATE games SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return game.Game{}, fmt.Errorf("update game: %w", err)
	}

	return s.GetGame(ctx, id)
}

// UpdateGamePhase stamps the current sub-phase and its deadline window.
func (s *Store) UpdateGamePhase(ctx context.Context, id string, p game.Phase, startTime time.Time, timeoutSeconds int) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE games SET current_phase = ?, phase_start_time = ?, phase_timeout_seconds = ?, `+touchUpdatedAt+`
WHERE id = ?`,
		string(p), toMillis(startTime), timeoutSeconds, id)
	if err != nil {
		return false, fmt.Errorf("update game phase: %w", err)
	}
	return rowsChanged(res)
}

// IncrementDay advances day_count by one.
func (s *Store) IncrementDay(ctx context.Context, id string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		"UPDATE games SET day_count = day_count + 1, "+touchUpdatedAt+" WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("increment day: %w", err)
	}
	return rowsChanged(res)
}

// FinishGame terminates a game: status, winner team, and the cleared phase
// fields land in one statement so no reader sees a half-finished row.
func (s *Store) FinishGame(ctx context.Context, id string, winner game.WinnerTeam) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE games SET
    status = 'finished',
    winner_team = ?,
    current_phase = NULL,
    phase_start_time = NULL,
    phase_timeout_seconds = NULL,
    `+touchUpdatedAt+`
WHERE id = ?`,
		string(winner), id)
	if err != nil {
		return false, fmt.Errorf("finish game: %w", err)
	}
	return rowsChanged(res)
}

// FindTimedOutGames returns active games whose phase deadline has passed.
//
// This is the one place the store reads a wall clock; every other timestamp
// is supplied by the caller or the database defaults.
func (s *Store) FindTimedOutGames(ctx context.Context) ([]game.Game, error) {
	now := time.Now().UTC().UnixMilli()
	return s.listGames(ctx, `
SELECT `+gameColumns+` FROM games
WHERE status IN ('day_phase', 'night_phase')
  AND phase_start_time IS NOT NULL
  AND phase_timeout_seconds IS NOT NULL
  AND phase_start_time + phase_timeout_seconds * 1000 <= ?
ORDER BY created_at, id`,
		now)
}

// DeleteGame removes a game row. Child rows are purged separately; the
// schema declares no cascade.
func (s *Store) DeleteGame(ctx context.Context, id string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM games WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete game: %w", err)
	}
	return rowsChanged(res)
}

func rowsChanged(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
