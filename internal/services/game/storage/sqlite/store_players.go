package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/player"
	"github.com/tsukino/jinro/internal/services/game/storage"
)

const playerColumns = "id, game_id, name, token, role, status, death_day, death_cause, created_at"

func scanPlayer(row rowScanner) (player.Player, error) {
	var p player.Player
	var role, status string
	var deathDay sql.NullInt64
	var deathCause sql.NullString
	var createdAt int64

	err := row.Scan(&p.ID, &p.GameID, &p.Name, &p.Token, &role, &status,
		&deathDay, &deathCause, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return player.Player{}, storage.ErrNotFound
	}
	if err != nil {
		return player.Player{}, fmt.Errorf("scan player row: %w", err)
	}

	p.Role = player.Role(role)
	p.Status = player.Status(status)
	p.DeathDay = fromNullInt(deathDay)
	p.DeathCause = fromNullEnum[player.DeathCause](deathCause)
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func (s *Store) listPlayers(ctx context.Context, query string, args ...any) ([]player.Player, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []player.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player rows: %w", err)
	}
	return players, nil
}

// CreatePlayer inserts a roster entry; a duplicate token or a reused name
// within the game yields ErrConflict.
func (s *Store) CreatePlayer(ctx context.Context, data storage.NewPlayer) (player.Player, error) {
	if strings.TrimSpace(data.GameID) == "" {
		return player.Player{}, apperrors.New(apperrors.CodeGameIDEmpty, "game id is required")
	}
	if strings.TrimSpace(data.Name) == "" {
		return player.Player{}, apperrors.New(apperrors.CodePlayerNameEmpty, "player name is required")
	}
	if strings.TrimSpace(data.Token) == "" {
		return player.Player{}, apperrors.New(apperrors.CodePlayerTokenEmpty, "player token is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO players (game_id, name, token, role, status, death_day, death_cause)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		data.GameID,
		data.Name,
		data.Token,
		string(data.Role),
		string(data.Status),
		toNullInt(data.DeathDay),
		toNullEnum(data.DeathCause),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return player.Player{}, conflict(fmt.Sprintf("player %s already exists in game %s", data.Name, data.GameID), err)
		}
		return player.Player{}, fmt.Errorf("insert player: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return player.Player{}, fmt.Errorf("player insert id: %w", err)
	}
	return s.GetPlayer(ctx, id)
}

// GetPlayer returns a player by row id, or ErrNotFound.
func (s *Store) GetPlayer(ctx context.Context, id int64) (player.Player, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+playerColumns+" FROM players WHERE id = ?", id)
	return scanPlayer(row)
}

// GetPlayerByToken returns a player by its auth token, or ErrNotFound.
func (s *Store) GetPlayerByToken(ctx context.Context, token string) (player.Player, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+playerColumns+" FROM players WHERE token = ?", token)
	return scanPlayer(row)
}

// GetPlayerByName returns a player by display name within a game.
func (s *Store) GetPlayerByName(ctx context.Context, gameID, name string) (player.Player, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+playerColumns+" FROM players WHERE game_id = ? AND name = ?", gameID, name)
	return scanPlayer(row)
}

// ListPlayersByGame returns the roster in creation order.
func (s *Store) ListPlayersByGame(ctx context.Context, gameID string) ([]player.Player, error) {
	return s.listPlayers(ctx,
		"SELECT "+playerColumns+" FROM players WHERE game_id = ? ORDER BY created_at, id",
		gameID)
}

// ListPlayersByRole returns players holding a given role, in creation order.
func (s *Store) ListPlayersByRole(ctx context.Context, gameID string, role player.Role) ([]player.Player, error) {
	return s.listPlayers(ctx,
		"SELECT "+playerColumns+" FROM players WHERE game_id = ? AND role = ? ORDER BY created_at, id",
		gameID, string(role))
}

// ListAlivePlayers returns the living roster, in creation order.
func (s *Store) ListAlivePlayers(ctx context.Context, gameID string) ([]player.Player, error) {
	return s.listPlayers(ctx,
		"SELECT "+playerColumns+" FROM players WHERE game_id = ? AND status = 'alive' ORDER BY created_at, id",
		gameID)
}

// ListDeadPlayers returns the dead roster, in creation order.
func (s *Store) ListDeadPlayers(ctx context.Context, gameID string) ([]player.Player, error) {
	return s.listPlayers(ctx,
		"SELECT "+playerColumns+" FROM players WHERE game_id = ? AND status = 'dead' ORDER BY created_at, id",
		gameID)
}

// UpdatePlayer merges the present fields of upd over the current row. The
// token is the immutable lookup key.
func (s *Store) UpdatePlayer(ctx context.Context, token string, upd storage.PlayerUpdate) (player.Player, error) {
	current, err := s.GetPlayerByToken(ctx, token)
	if err != nil {
		return player.Player{}, err
	}

	var sets []string
	var args []any
	if upd.Name.Set {
		if strings.TrimSpace(upd.Name.Value) == "" {
			return player.Player{}, apperrors.New(apperrors.CodePlayerNameEmpty, "player name is required")
		}
		sets = append(sets, "name = ?")
		args = append(args, upd.Name.Value)
	}
	if upd.Role.Set {
		sets = append(sets, "role = ?")
		args = append(args, string(upd.Role.Value))
	}
	if upd.Status.Set {
		sets = append(sets, "status = ?")
		args = append(args, string(upd.Status.Value))
	}
	if upd.DeathDay.Set {
		sets = append(sets, "death_day = ?")
		args = append(args, toNullInt(upd.DeathDay.Value))
	}
	if upd.DeathCause.Set {
		sets = append(sets, "death_cause = ?")
		args = append(args, toNullEnum(upd.DeathCause.Value))
	}

	if len(sets) == 0 {
		return current, nil
	}

	args = append(args, token)
	query := "UPDATE players SET " + strings.Join(sets, ", ") + " WHERE token = ?"
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return player.Player{}, conflict("player name already taken in game", err)
		}
		return player.Player{}, fmt.Errorf("update player: %w", err)
	}

	return s.GetPlayerByToken(ctx, token)
}

// KillPlayer transitions alive to dead exactly once. The status guard in the
// WHERE clause makes a repeat call report false without touching the death
// fields already recorded.
func (s *Store) KillPlayer(ctx context.Context, token string, day int, cause player.DeathCause) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE players SET status = 'dead', death_day = ?, death_cause = ?
WHERE token = ? AND status = 'alive'`,
		day, string(cause), token)
	if err != nil {
		return false, fmt.Errorf("kill player: %w", err)
	}
	return rowsChanged(res)
}

// DeletePlayer removes a roster entry by token.
func (s *Store) DeletePlayer(ctx context.Context, token string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM players WHERE token = ?", token)
	if err != nil {
		return false, fmt.Errorf("delete player: %w", err)
	}
	return rowsChanged(res)
}

// GetRoleCounts returns counts per role, zero-filled so callers can index
// any known role without checking presence.
func (s *Store) GetRoleCounts(ctx context.Context, gameID string) (map[player.Role]int, error) {
	counts := make(map[player.Role]int, len(player.Roles()))
	for _, r := range player.Roles() {
		counts[r] = 0
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT role, COUNT(*) FROM players WHERE game_id = ? GROUP BY role", gameID)
	if err != nil {
		return nil, fmt.Errorf("query role counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		counts[player.Role(role)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role counts: %w", err)
	}
	return counts, nil
}

// GetAliveTeamCounts tallies alive players per team, the input to win checks.
func (s *Store) GetAliveTeamCounts(ctx context.Context, gameID string) (storage.TeamCounts, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT role, COUNT(*) FROM players WHERE game_id = ? AND status = 'alive' GROUP BY role", gameID)
	if err != nil {
		return storage.TeamCounts{}, fmt.Errorf("query team counts: %w", err)
	}
	defer rows.Close()

	var counts storage.TeamCounts
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return storage.TeamCounts{}, fmt.Errorf("scan team count: %w", err)
		}
		switch player.Role(role).Team() {
		case player.TeamWerewolf:
			counts.Werewolf += n
		default:
			counts.Village += n
		}
	}
	if err := rows.Err(); err != nil {
		return storage.TeamCounts{}, fmt.Errorf("iterate team counts: %w", err)
	}
	return counts, nil
}

// PlayerExistsInGame reports whether a display name is taken in a game.
func (s *Store) PlayerExistsInGame(ctx context.Context, gameID, name string) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT 1 FROM players WHERE game_id = ? AND name = ? LIMIT 1", gameID, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query player exists: %w", err)
	}
	return true, nil
}

// GetWerewolves returns every werewolf in the game, dead ones included.
// Callers narrowing pack chat to living wolves filter on status themselves.
func (s *Store) GetWerewolves(ctx context.Context, gameID string) ([]player.Player, error) {
	return s.ListPlayersByRole(ctx, gameID, player.RoleWerewolf)
}

// GetPlayersDeadOnDay returns players who died on a given day, the medium's
// divination pool.
func (s *Store) GetPlayersDeadOnDay(ctx context.Context, gameID string, day int) ([]player.Player, error) {
	return s.listPlayers(ctx,
		"SELECT "+playerColumns+" FROM players WHERE game_id = ? AND status = 'dead' AND death_day = ? ORDER BY created_at, id",
		gameID, day)
}
