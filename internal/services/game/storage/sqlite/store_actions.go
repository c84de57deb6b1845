package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/action"
	"github.com/tsukino/jinro/internal/services/game/storage"
)

const actionColumns = "id, game_id, player_token, action_type, target_player, result, day_count, phase, success, created_at"

func scanAction(row rowScanner) (action.Action, error) {
	var a action.Action
	var actionType, phase string
	var target sql.NullString
	var resultRaw []byte
	var success int64
	var createdAt int64

	err := row.Scan(&a.ID, &a.GameID, &a.PlayerToken, &actionType, &target,
		&resultRaw, &a.DayCount, &phase, &success, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return action.Action{}, storage.ErrNotFound
	}
	if err != nil {
		return action.Action{}, fmt.Errorf("scan action row: %w", err)
	}

	result, err := action.DecodeResult(resultRaw)
	if err != nil {
		return action.Action{}, err
	}

	a.Type = action.Type(actionType)
	a.TargetPlayer = fromNullString(target)
	a.Result = result
	a.Phase = action.Phase(phase)
	a.Success = success != 0
	a.CreatedAt = fromMillis(createdAt)
	return a, nil
}

func (s *Store) listActions(ctx context.Context, query string, args ...any) ([]action.Action, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var actions []action.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action rows: %w", err)
	}
	return actions, nil
}

// CreateAction appends one action row. A second success row for the same
// (game, player, type, day, phase) key trips the partial unique index and
// surfaces as ErrConflict, so concurrent duplicate submissions cannot both
// land.
func (s *Store) CreateAction(ctx context.Context, data storage.NewAction) (action.Action, error) {
	if strings.TrimSpace(data.GameID) == "" {
		return action.Action{}, apperrors.New(apperrors.CodeGameIDEmpty, "game id is required")
	}
	if strings.TrimSpace(data.PlayerToken) == "" {
		return action.Action{}, apperrors.New(apperrors.CodePlayerTokenEmpty, "player token is required")
	}

	resultRaw, err := action.EncodeResult(data.Result)
	if err != nil {
		return action.Action{}, err
	}
	var resultArg any
	if resultRaw != nil {
		resultArg = string(resultRaw)
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO actions (game_id, player_token, action_type, target_player, result, day_count, phase, success)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		data.GameID,
		data.PlayerToken,
		string(data.Type),
		toNullString(data.TargetPlayer),
		resultArg,
		data.DayCount,
		string(data.Phase),
		boolToInt(data.Success),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return action.Action{}, conflict(
				fmt.Sprintf("action %s already recorded for day %d %s", data.Type, data.DayCount, data.Phase), err)
		}
		return action.Action{}, fmt.Errorf("insert action: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return action.Action{}, fmt.Errorf("action insert id: %w", err)
	}
	return s.GetAction(ctx, id)
}

// GetAction returns an action by row id, or ErrNotFound.
func (s *Store) GetAction(ctx context.Context, id int64) (action.Action, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+actionColumns+" FROM actions WHERE id = ?", id)
	return scanAction(row)
}

// ListActionsByGame returns the full action log in chronological order.
func (s *Store) ListActionsByGame(ctx context.Context, gameID string) ([]action.Action, error) {
	return s.listActions(ctx,
		"SELECT "+actionColumns+" FROM actions WHERE game_id = ? ORDER BY created_at, id",
		gameID)
}

// ListActionsByPlayer returns everything one token did, across games.
func (s *Store) ListActionsByPlayer(ctx context.Context, playerToken string) ([]action.Action, error) {
	return s.listActions(ctx,
		"SELECT "+actionColumns+" FROM actions WHERE player_token = ? ORDER BY created_at, id",
		playerToken)
}

// ListActionsByGameAndPlayer returns one player's log within a game.
func (s *Store) ListActionsByGameAndPlayer(ctx context.Context, gameID, playerToken string) ([]action.Action, error) {
	return s.listActions(ctx,
		"SELECT "+actionColumns+" FROM actions WHERE game_id = ? AND player_token = ? ORDER BY created_at, id",
		gameID, playerToken)
}

func (s *Store) listActionsByType(ctx context.Context, gameID string, t action.Type, playerToken *string, day *int) ([]action.Action, error) {
	query := "SELECT " + actionColumns + " FROM actions WHERE game_id = ? AND action_type = ?"
	args := []any{gameID, string(t)}
	if playerToken != nil {
		query += " AND player_token = ?"
		args = append(args, *playerToken)
	}
	if day != nil {
		query += " AND day_count = ?"
		args = append(args, *day)
	}
	query += " ORDER BY created_at, id"
	return s.listActions(ctx, query, args...)
}

// ListActionsByType returns actions of one type, optionally for one day.
func (s *Store) ListActionsByType(ctx context.Context, gameID string, t action.Type, day *int) ([]action.Action, error) {
	return s.listActionsByType(ctx, gameID, t, nil, day)
}

// ListActionsByPhase returns actions of one phase, optionally for one day.
func (s *Store) ListActionsByPhase(ctx context.Context, gameID string, p action.Phase, day *int) ([]action.Action, error) {
	query := "SELECT " + actionColumns + " FROM actions WHERE game_id = ? AND phase = ?"
	args := []any{gameID, string(p)}
	if day != nil {
		query += " AND day_count = ?"
		args = append(args, *day)
	}
	query += " ORDER BY created_at, id"
	return s.listActions(ctx, query, args...)
}

// ListActionsByDay returns one day's full log.
func (s *Store) ListActionsByDay(ctx context.Context, gameID string, day int) ([]action.Action, error) {
	return s.listActions(ctx,
		"SELECT "+actionColumns+" FROM actions WHERE game_id = ? AND day_count = ? ORDER BY created_at, id",
		gameID, day)
}

// FindDivineActions returns divine actions, optionally narrowed to one seer
// and one day.
func (s *Store) FindDivineActions(ctx context.Context, gameID string, playerToken *string, day *int) ([]action.Action, error) {
	return s.listActionsByType(ctx, gameID, action.TypeDivine, playerToken, day)
}

// FindKillActions returns kill actions, optionally for one day.
func (s *Store) FindKillActions(ctx context.Context, gameID string, day *int) ([]action.Action, error) {
	return s.listActionsByType(ctx, gameID, action.TypeKill, nil, day)
}

// FindVoteActions returns vote actions, optionally for one day.
func (s *Store) FindVoteActions(ctx context.Context, gameID string, day *int) ([]action.Action, error) {
	return s.listActionsByType(ctx, gameID, action.TypeVote, nil, day)
}

// FindSpeakActions returns speak actions, optionally narrowed to one player
// and one day.
func (s *Store) FindSpeakActions(ctx context.Context, gameID string, playerToken *string, day *int) ([]action.Action, error) {
	return s.listActionsByType(ctx, gameID, action.TypeSpeak, playerToken, day)
}

// HasPlayerActed reports whether a successful action already exists for the
// idempotency key. Failed attempts do not count.
func (s *Store) HasPlayerActed(ctx context.Context, gameID, playerToken string, t action.Type, day int, p action.Phase) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT 1 FROM actions
WHERE game_id = ? AND player_token = ? AND action_type = ? AND day_count = ? AND phase = ? AND success = 1
LIMIT 1`,
		gameID, playerToken, string(t), day, string(p)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query player acted: %w", err)
	}
	return true, nil
}

// GetVoteResults groups a day's successful votes by target, yielding target
// name to voter tokens. Tie-breaking stays with the caller.
func (s *Store) GetVoteResults(ctx context.Context, gameID string, day int) (map[string][]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT target_player, player_token FROM actions
WHERE game_id = ? AND action_type = 'vote' AND day_count = ? AND success = 1 AND target_player IS NOT NULL
ORDER BY created_at, id`,
		gameID, day)
	if err != nil {
		return nil, fmt.Errorf("query vote results: %w", err)
	}
	defer rows.Close()

	votes := make(map[string][]string)
	for rows.Next() {
		var target, voter string
		if err := rows.Scan(&target, &voter); err != nil {
			return nil, fmt.Errorf("scan vote row: %w", err)
		}
		votes[target] = append(votes[target], voter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote rows: %w", err)
	}
	return votes, nil
}

// GetKillTarget returns the target of the day's first successful kill, or
// ErrNotFound when nobody was killed.
func (s *Store) GetKillTarget(ctx context.Context, gameID string, day int) (string, error) {
	var target string
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT target_player FROM actions
WHERE game_id = ? AND action_type = 'kill' AND day_count = ? AND success = 1 AND target_player IS NOT NULL
ORDER BY created_at, id
LIMIT 1`,
		gameID, day).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query kill target: %w", err)
	}
	return target, nil
}

// GetDivineResults returns a seer's readings in chronological order, the
// backing data for the divination journal. Rejected attempts are part of the
// journal; only the tally helpers screen on success.
func (s *Store) GetDivineResults(ctx context.Context, gameID, playerToken string) ([]action.Action, error) {
	return s.FindDivineActions(ctx, gameID, &playerToken, nil)
}

// CountActions counts all logged actions of one type, optionally for one
// day. Failed attempts count here; this is a monitoring aggregate and agrees
// with GetActionStats, not a tally input.
func (s *Store) CountActions(ctx context.Context, gameID string, t action.Type, day *int) (int, error) {
	query := "SELECT COUNT(*) FROM actions WHERE game_id = ? AND action_type = ?"
	args := []any{gameID, string(t)}
	if day != nil {
		query += " AND day_count = ?"
		args = append(args, *day)
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}

// GetActionStats aggregates a game's action log for monitoring.
func (s *Store) GetActionStats(ctx context.Context, gameID string) (storage.ActionStats, error) {
	stats := storage.ActionStats{
		ByType:  make(map[action.Type]int),
		ByPhase: make(map[action.Phase]int),
		ByDay:   make(map[int]int),
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT action_type, phase, day_count FROM actions WHERE game_id = ?", gameID)
	if err != nil {
		return storage.ActionStats{}, fmt.Errorf("query action stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var actionType, phase string
		var day int
		if err := rows.Scan(&actionType, &phase, &day); err != nil {
			return storage.ActionStats{}, fmt.Errorf("scan action stats: %w", err)
		}
		stats.Total++
		stats.ByType[action.Type(actionType)]++
		stats.ByPhase[action.Phase(phase)]++
		stats.ByDay[day]++
	}
	if err := rows.Err(); err != nil {
		return storage.ActionStats{}, fmt.Errorf("iterate action stats: %w", err)
	}
	return stats, nil
}

// DeleteAction removes one action by row id.
func (s *Store) DeleteAction(ctx context.Context, id int64) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM actions WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete action: %w", err)
	}
	return rowsChanged(res)
}

// DeleteActionsByGame purges a game's action log and reports the row count.
func (s *Store) DeleteActionsByGame(ctx context.Context, gameID string) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM actions WHERE game_id = ?", gameID)
	if err != nil {
		return 0, fmt.Errorf("delete game actions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
