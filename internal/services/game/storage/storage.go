// Package storage defines the persistence contracts for the jinro game store.
package storage

import (
	"context"
	"time"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/action"
	"github.com/tsukino/jinro/internal/services/game/domain/chat"
	"github.com/tsukino/jinro/internal/services/game/domain/game"
	"github.com/tsukino/jinro/internal/services/game/domain/phase"
	"github.com/tsukino/jinro/internal/services/game/domain/player"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConflict indicates a create collided with an existing row on a unique
// key (duplicate game id, player token, or a second successful action for
// the same idempotency key).
var ErrConflict = apperrors.New(apperrors.CodeAlreadyExists, "record already exists")

// Optional marks an update field as present. The zero value leaves the
// column untouched; Some(v) writes v, including an explicit nil for nullable
// columns.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some wraps a value as a present update field.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// NewGame carries the caller-supplied fields of a game row.
type NewGame struct {
	ID                  string
	Status              game.Status
	CurrentPhase        *game.Phase
	DayCount            int
	Config              game.Config
	PhaseStartTime      *time.Time
	PhaseTimeoutSeconds *int
	WinnerTeam          *game.WinnerTeam
}

// GameUpdate patches a statically enumerated set of game columns.
type GameUpdate struct {
	Status              Optional[game.Status]
	CurrentPhase        Optional[*game.Phase]
	DayCount            Optional[int]
	Config              Optional[game.Config]
	PhaseStartTime      Optional[*time.Time]
	PhaseTimeoutSeconds Optional[*int]
	WinnerTeam          Optional[*game.WinnerTeam]
}

// GameStore owns the one-row-per-match game aggregate.
type GameStore interface {
	// CreateGame inserts a game; a duplicate id yields ErrConflict.
	CreateGame(ctx context.Context, data NewGame) (game.Game, error)
	GetGame(ctx context.Context, id string) (game.Game, error)
	// ListGames returns all games, newest first.
	ListGames(ctx context.Context) ([]game.Game, error)
	ListGamesByStatus(ctx context.Context, status game.Status) ([]game.Game, error)
	// UpdateGame merges the present fields over the current row and
	// re-stamps updated_at.
	UpdateGame(ctx context.Context, id string, upd GameUpdate) (game.Game, error)
	UpdateGamePhase(ctx context.Context, id string, p game.Phase, startTime time.Time, timeoutSeconds int) (bool, error)
	IncrementDay(ctx context.Context, id string) (bool, error)
	// FinishGame sets status, winner team, and clears all phase fields in
	// one statement.
	FinishGame(ctx context.Context, id string, winner game.WinnerTeam) (bool, error)
	// FindTimedOutGames returns active games whose phase deadline has passed.
	FindTimedOutGames(ctx context.Context) ([]game.Game, error)
	DeleteGame(ctx context.Context, id string) (bool, error)
}

// NewPlayer carries the caller-supplied fields of a roster entry.
type NewPlayer struct {
	GameID     string
	Name       string
	Token      string
	Role       player.Role
	Status     player.Status
	DeathDay   *int
	DeathCause *player.DeathCause
}

// PlayerUpdate patches a statically enumerated set of player columns.
// The token itself is immutable.
type PlayerUpdate struct {
	Name       Optional[string]
	Role       Optional[player.Role]
	Status     Optional[player.Status]
	DeathDay   Optional[*int]
	DeathCause Optional[*player.DeathCause]
}

// TeamCounts aggregates alive players per team.
type TeamCounts struct {
	Village  int
	Werewolf int
}

// PlayerStore owns the per-game roster.
type PlayerStore interface {
	// CreatePlayer inserts a roster entry; a duplicate token yields ErrConflict.
	CreatePlayer(ctx context.Context, data NewPlayer) (player.Player, error)
	GetPlayer(ctx context.Context, id int64) (player.Player, error)
	GetPlayerByToken(ctx context.Context, token string) (player.Player, error)
	GetPlayerByName(ctx context.Context, gameID, name string) (player.Player, error)
	// ListPlayersByGame returns the roster in creation order.
	ListPlayersByGame(ctx context.Context, gameID string) ([]player.Player, error)
	ListPlayersByRole(ctx context.Context, gameID string, role player.Role) ([]player.Player, error)
	ListAlivePlayers(ctx context.Context, gameID string) ([]player.Player, error)
	ListDeadPlayers(ctx context.Context, gameID string) ([]player.Player, error)
	UpdatePlayer(ctx context.Context, token string, upd PlayerUpdate) (player.Player, error)
	// KillPlayer transitions alive to dead exactly once; a repeat call
	// reports false and leaves the death fields untouched.
	KillPlayer(ctx context.Context, token string, day int, cause player.DeathCause) (bool, error)
	DeletePlayer(ctx context.Context, token string) (bool, error)
	// GetRoleCounts returns counts per role, zero-filled for absent roles.
	GetRoleCounts(ctx context.Context, gameID string) (map[player.Role]int, error)
	GetAliveTeamCounts(ctx context.Context, gameID string) (TeamCounts, error)
	PlayerExistsInGame(ctx context.Context, gameID, name string) (bool, error)
	GetWerewolves(ctx context.Context, gameID string) ([]player.Player, error)
	GetPlayersDeadOnDay(ctx context.Context, gameID string, day int) ([]player.Player, error)
}

// NewMessage carries the caller-supplied fields of a chat entry.
type NewMessage struct {
	GameID      string
	PlayerName  string
	Body        string
	Phase       chat.Phase
	PhaseDetail *chat.PhaseDetail
	Target      chat.Target
	DayCount    int
}

// MessageStats aggregates a game's chat log for monitoring.
type MessageStats struct {
	Total    int
	ByPhase  map[chat.Phase]int
	ByTarget map[chat.Target]int
	ByPlayer map[string]int
}

// MessageLog owns the append-only chat record.
type MessageLog interface {
	CreateMessage(ctx context.Context, data NewMessage) (chat.Message, error)
	GetMessage(ctx context.Context, id int64) (chat.Message, error)
	ListMessagesByGame(ctx context.Context, gameID string) ([]chat.Message, error)
	ListMessagesByPhase(ctx context.Context, gameID string, p chat.Phase, day *int) ([]chat.Message, error)
	ListMessagesByTarget(ctx context.Context, gameID string, target chat.Target, p *chat.Phase, day *int) ([]chat.Message, error)
	ListMessagesByPlayer(ctx context.Context, gameID, playerName string) ([]chat.Message, error)
	ListMessagesByDay(ctx context.Context, gameID string, day int) ([]chat.Message, error)
	// ListMessagesSince returns messages created strictly after the cursor,
	// for incremental polling.
	ListMessagesSince(ctx context.Context, gameID string, since time.Time) ([]chat.Message, error)
	// ListRecentMessages returns the most recent limit messages in
	// chronological order.
	ListRecentMessages(ctx context.Context, gameID string, limit int) ([]chat.Message, error)
	ListPublicMessages(ctx context.Context, gameID string, day *int) ([]chat.Message, error)
	ListWerewolfMessages(ctx context.Context, gameID string, day *int) ([]chat.Message, error)
	CountPlayerMessagesInPhase(ctx context.Context, gameID, playerName string, p chat.Phase, day int, target *chat.Target) (int, error)
	GetWerewolfConsultationCount(ctx context.Context, gameID string, day int) (int, error)
	GetMessageStats(ctx context.Context, gameID string) (MessageStats, error)
	DeleteMessage(ctx context.Context, id int64) (bool, error)
	DeleteMessagesByGame(ctx context.Context, gameID string) (int64, error)
}

// NewAction carries the caller-supplied fields of an action row.
type NewAction struct {
	GameID       string
	PlayerToken  string
	Type         action.Type
	TargetPlayer *string
	Result       action.Result
	DayCount     int
	Phase        action.Phase
	Success      bool
}

// ActionStats aggregates a game's action log for monitoring.
type ActionStats struct {
	Total   int
	ByType  map[action.Type]int
	ByPhase map[action.Phase]int
	ByDay   map[int]int
}

// ActionLog owns the append-only action record and its idempotency queries.
type ActionLog interface {
	// CreateAction inserts one action row. A second success row for the same
	// (game, player, type, day, phase) key yields ErrConflict; the schema
	// enforces the key with a partial unique index.
	CreateAction(ctx context.Context, data NewAction) (action.Action, error)
	GetAction(ctx context.Context, id int64) (action.Action, error)
	ListActionsByGame(ctx context.Context, gameID string) ([]action.Action, error)
	ListActionsByPlayer(ctx context.Context, playerToken string) ([]action.Action, error)
	ListActionsByGameAndPlayer(ctx context.Context, gameID, playerToken string) ([]action.Action, error)
	ListActionsByType(ctx context.Context, gameID string, t action.Type, day *int) ([]action.Action, error)
	ListActionsByPhase(ctx context.Context, gameID string, p action.Phase, day *int) ([]action.Action, error)
	ListActionsByDay(ctx context.Context, gameID string, day int) ([]action.Action, error)
	FindDivineActions(ctx context.Context, gameID string, playerToken *string, day *int) ([]action.Action, error)
	FindKillActions(ctx context.Context, gameID string, day *int) ([]action.Action, error)
	FindVoteActions(ctx context.Context, gameID string, day *int) ([]action.Action, error)
	FindSpeakActions(ctx context.Context, gameID string, playerToken *string, day *int) ([]action.Action, error)
	// HasPlayerActed reports whether a successful action already exists for
	// the idempotency key; callers check it before inserting.
	HasPlayerActed(ctx context.Context, gameID, playerToken string, t action.Type, day int, p action.Phase) (bool, error)
	// GetVoteResults groups successful votes by target, yielding
	// target to voter tokens. Tie-breaking is the orchestrator's problem.
	GetVoteResults(ctx context.Context, gameID string, day int) (map[string][]string, error)
	// GetKillTarget returns the target of the day's first successful kill,
	// or ErrNotFound when nobody was killed.
	GetKillTarget(ctx context.Context, gameID string, day int) (string, error)
	GetDivineResults(ctx context.Context, gameID, playerToken string) ([]action.Action, error)
	CountActions(ctx context.Context, gameID string, t action.Type, day *int) (int, error)
	GetActionStats(ctx context.Context, gameID string) (ActionStats, error)
	DeleteAction(ctx context.Context, id int64) (bool, error)
	DeleteActionsByGame(ctx context.Context, gameID string) (int64, error)
}

// HistoryUpdate patches the only mutable phase-history columns.
type HistoryUpdate struct {
	EndedAt Optional[*time.Time]
	Results Optional[phase.Result]
}

// GameStats aggregates a game's phase history.
type GameStats struct {
	TotalPhases     int
	CompletedPhases int
	PhaseCounts     map[phase.Type]int
	TotalDays       int
	// AvgPhaseDuration is the mean closed-phase duration in whole seconds,
	// nil when no phase has closed yet.
	AvgPhaseDuration *int64
}

// PhaseHistoryStore tracks start/end and results of each phase instance.
type PhaseHistoryStore interface {
	// StartPhase opens a new phase entry. Callers check FindCurrentPhase
	// first; the store does not prevent a second open entry.
	StartPhase(ctx context.Context, gameID string, t phase.Type, day int, startTime time.Time) (phase.History, error)
	GetPhase(ctx context.Context, id int64) (phase.History, error)
	// ListPhasesByGame returns the game timeline ordered by day, then start.
	ListPhasesByGame(ctx context.Context, gameID string) ([]phase.History, error)
	ListPhasesByDay(ctx context.Context, gameID string, day int) ([]phase.History, error)
	ListPhasesByType(ctx context.Context, gameID string, t phase.Type, day *int) ([]phase.History, error)
	ListPhasesByDayRange(ctx context.Context, gameID string, startDay, endDay int) ([]phase.History, error)
	// FindCurrentPhase returns the latest open entry.
	FindCurrentPhase(ctx context.Context, gameID string) (phase.History, error)
	FindLatestCompletedPhase(ctx context.Context, gameID string) (phase.History, error)
	UpdatePhaseHistory(ctx context.Context, id int64, upd HistoryUpdate) (phase.History, error)
	// EndPhase closes an entry exactly once, attaching its results.
	EndPhase(ctx context.Context, id int64, endTime time.Time, results phase.Result) (bool, error)
	// IsPhaseCompleted reports whether a closed entry exists for the key,
	// used to prevent re-entering a finished phase.
	IsPhaseCompleted(ctx context.Context, gameID string, t phase.Type, day int) (bool, error)
	// FindIncompletePhases lists open entries for crash-recovery sweeps;
	// an empty gameID sweeps every game.
	FindIncompletePhases(ctx context.Context, gameID string) ([]phase.History, error)
	// GetPhaseDuration returns ended minus started in whole seconds, or nil
	// while the phase is still open.
	GetPhaseDuration(ctx context.Context, id int64) (*int64, error)
	GetGameStats(ctx context.Context, gameID string) (GameStats, error)
	DeletePhase(ctx context.Context, id int64) (bool, error)
	DeletePhasesByGame(ctx context.Context, gameID string) (int64, error)
}

// Store is the full persistence surface handed to the orchestrator.
type Store interface {
	GameStore
	PlayerStore
	MessageLog
	ActionLog
	PhaseHistoryStore

	// Health executes a trivial query to confirm the store is reachable.
	Health(ctx context.Context) error
	Close() error
}
