package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/chat"
	"github.com/tsukino/jinro/internal/services/game/storage"
)

const messageColumns = "id, game_id, player_name, message, phase, phase_detail, target, day_count, created_at"

func scanMessage(row rowScanner) (chat.Message, error) {
	var m chat.Message
	var phase, target string
	var phaseDetail sql.NullString
	var createdAt int64

	err := row.Scan(&m.ID, &m.GameID, &m.PlayerName, &m.Body, &phase,
		&phaseDetail, &target, &m.DayCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Message{}, storage.ErrNotFound
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("scan message row: %w", err)
	}

	m.Phase = chat.Phase(phase)
	m.PhaseDetail = fromNullEnum[chat.PhaseDetail](phaseDetail)
	m.Target = chat.Target(target)
	m.CreatedAt = fromMillis(createdAt)
	return m, nil
}

func (s *Store) listMessages(ctx context.Context, query string, args ...any) ([]chat.Message, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return messages, nil
}

// CreateMessage appends one chat entry.
func (s *Store) CreateMessage(ctx context.Context, data storage.NewMessage) (chat.Message, error) {
	if strings.TrimSpace(data.GameID) == "" {
		return chat.Message{}, apperrors.New(apperrors.CodeGameIDEmpty, "game id is required")
	}
	if strings.TrimSpace(data.Body) == "" {
		return chat.Message{}, apperrors.New(apperrors.CodeMessageBodyEmpty, "message body is required")
	}

	target := data.Target
	if target == "" {
		target = chat.TargetAll
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO messages (game_id, player_name, message, phase, phase_detail, target, day_count)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		data.GameID,
		data.PlayerName,
		data.Body,
		string(data.Phase),
		toNullEnum(data.PhaseDetail),
		string(target),
		data.DayCount,
	)
	if err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return chat.Message{}, fmt.Errorf("message insert id: %w", err)
	}
	return s.GetMessage(ctx, id)
}

// GetMessage returns a message by row id, or ErrNotFound.
func (s *Store) GetMessage(ctx context.Context, id int64) (chat.Message, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	return scanMessage(row)
}

// ListMessagesByGame returns the full transcript in chronological order.
func (s *Store) ListMessagesByGame(ctx context.Context, gameID string) ([]chat.Message, error) {
	return s.listMessages(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE game_id = ? ORDER BY created_at, id",
		gameID)
}

// ListMessagesByPhase returns messages of one phase, optionally for one day.
func (s *Store) ListMessagesByPhase(ctx context.Context, gameID string, p chat.Phase, day *int) ([]chat.Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE game_id = ? AND phase = ?"
	args := []any{gameID, string(p)}
	if day != nil {
		query += " AND day_count = ?"
		args = append(args, *day)
	}
	query += " ORDER BY created_at, id"
	return s.listMessages(ctx, query, args...)
}

// ListMessagesByTarget returns messages for one audience, optionally narrowed
// by phase and day.
func (s *Store) ListMessagesByTarget(ctx context.Context, gameID string, target chat.Target, p *chat.Phase, day *int) ([]chat.Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE game_id = ? AND target = ?"
	args := []any{gameID, string(target)}
	if p != nil {
		query += " AND phase = ?"
		args = append(args, string(*p))
	}
	if day != nil {
		query += " AND day_count = ?"
		args = append(args, *day)
	}
	query += " ORDER BY created_at, id"
	return s.listMessages(ctx, query, args...)
}

// ListMessagesByPlayer returns everything one display name said.
func (s *Store) ListMessagesByPlayer(ctx context.Context, gameID, playerName string) ([]chat.Message, error) {
	return s.listMessages(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE game_id = ? AND player_name = ? ORDER BY created_at, id",
		gameID, playerName)
}

// ListMessagesByDay returns one day's transcript.
func (s *Store) ListMessagesByDay(ctx context.Context, gameID string, day int) ([]chat.Message, error) {
	return s.listMessages(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE game_id = ? AND day_count = ? ORDER BY created_at, id",
		gameID, day)
}

// ListMessagesSince returns messages created strictly after the cursor, for
// incremental polling.
func (s *Store) ListMessagesSince(ctx context.Context, gameID string, since time.Time) ([]chat.Message, error) {
	return s.listMessages(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE game_id = ? AND created_at > ? ORDER BY created_at, id",
		gameID, toMillis(since))
}

// ListRecentMessages returns the most recent limit messages in chronological
// order. A non-positive limit falls back to 50.
func (s *Store) ListRecentMessages(ctx context.Context, gameID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	messages, err := s.listMessages(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE game_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		gameID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListPublicMessages returns the transcript every player may read.
func (s *Store) ListPublicMessages(ctx context.Context, gameID string, day *int) ([]chat.Message, error) {
	return s.ListMessagesByTarget(ctx, gameID, chat.TargetAll, nil, day)
}

// ListWerewolfMessages returns the pack-only transcript.
func (s *Store) ListWerewolfMessages(ctx context.Context, gameID string, day *int) ([]chat.Message, error) {
	return s.ListMessagesByTarget(ctx, gameID, chat.TargetWerewolf, nil, day)
}

// CountPlayerMessagesInPhase counts one player's utterances in a phase of a
// day, the input to per-phase speak limits. A target narrows the count to one
// audience.
func (s *Store) CountPlayerMessagesInPhase(ctx context.Context, gameID, playerName string, p chat.Phase, day int, target *chat.Target) (int, error) {
	query := "SELECT COUNT(*) FROM messages WHERE game_id = ? AND player_name = ? AND phase = ? AND day_count = ?"
	args := []any{gameID, playerName, string(p), day}
	if target != nil {
		query += " AND target = ?"
		args = append(args, string(*target))
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count player messages: %w", err)
	}
	return n, nil
}

// GetWerewolfConsultationCount counts the pack's night consultation messages
// for a day, the input to the consultation speak limit.
func (s *Store) GetWerewolfConsultationCount(ctx context.Context, gameID string, day int) (int, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM messages
WHERE game_id = ? AND phase = 'night' AND target = 'werewolf' AND day_count = ?`,
		gameID, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count consultation messages: %w", err)
	}
	return n, nil
}

// GetMessageStats aggregates a game's chat log for monitoring.
func (s *Store) GetMessageStats(ctx context.Context, gameID string) (storage.MessageStats, error) {
	stats := storage.MessageStats{
		ByPhase:  make(map[chat.Phase]int),
		ByTarget: make(map[chat.Target]int),
		ByPlayer: make(map[string]int),
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT player_name, phase, target FROM messages WHERE game_id = ?", gameID)
	if err != nil {
		return storage.MessageStats{}, fmt.Errorf("query message stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, phase, target string
		if err := rows.Scan(&name, &phase, &target); err != nil {
			return storage.MessageStats{}, fmt.Errorf("scan message stats: %w", err)
		}
		stats.Total++
		stats.ByPhase[chat.Phase(phase)]++
		stats.ByTarget[chat.Target(target)]++
		stats.ByPlayer[name]++
	}
	if err := rows.Err(); err != nil {
		return storage.MessageStats{}, fmt.Errorf("iterate message stats: %w", err)
	}
	return stats, nil
}

// DeleteMessage removes one message by row id.
func (s *Store) DeleteMessage(ctx context.Context, id int64) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	return rowsChanged(res)
}

// DeleteMessagesByGame purges a game's transcript and reports the row count.
func (s *Store) DeleteMessagesByGame(ctx context.Context, gameID string) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM messages WHERE game_id = ?", gameID)
	if err != nil {
		return 0, fmt.Errorf("delete game messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
