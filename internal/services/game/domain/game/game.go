// Package game defines the game aggregate persisted for each match.
package game

import (
	"encoding/json"
	"time"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
)

// Status describes the lifecycle of a game.
type Status string

const (
	// StatusWaiting indicates a game waiting for its roster before the first day.
	StatusWaiting Status = "waiting"
	// StatusDayPhase indicates the daytime half of the cycle.
	StatusDayPhase Status = "day_phase"
	// StatusNightPhase indicates the nighttime half of the cycle.
	StatusNightPhase Status = "night_phase"
	// StatusFinished indicates a terminal game with a decided winner.
	StatusFinished Status = "finished"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusDayPhase, StatusNightPhase, StatusFinished:
		return true
	}
	return false
}

// Active reports whether the game is inside a running phase with a deadline.
func (s Status) Active() bool {
	return s == StatusDayPhase || s == StatusNightPhase
}

// Phase is the sub-phase label carried while a game is active.
type Phase string

const (
	PhaseDiscussion   Phase = "discussion"
	PhaseVoting       Phase = "voting"
	PhaseAction       Phase = "action"
	PhaseConsultation Phase = "consultation"
)

// WinnerTeam names the team that won a finished game.
type WinnerTeam string

const (
	WinnerVillage  WinnerTeam = "village"
	WinnerWerewolf WinnerTeam = "werewolf"
)

// RoleQuotas holds the per-role player counts of a match configuration.
type RoleQuotas struct {
	Villager      int `json:"villager"`
	FortuneTeller int `json:"fortune_teller"`
	Medium        int `json:"medium,omitempty"`
	Werewolf      int `json:"werewolf"`
	Madman        int `json:"madman"`
}

// PhaseTimeouts holds per-phase timeout seconds.
type PhaseTimeouts struct {
	DayDiscussion     int `json:"day_discussion"`
	DayVoting         int `json:"day_voting"`
	NightAction       int `json:"night_action"`
	NightConsultation int `json:"night_consultation"`
}

// SpeakLimits holds per-phase speak limits.
type SpeakLimits struct {
	DaySpeaksPerPlayer  int `json:"day_speaks_per_player"`
	NightWerewolfSpeaks int `json:"night_werewolf_speaks"`
}

// Config is the immutable match configuration stored as a JSON column.
type Config struct {
	PlayerCount int           `json:"player_count"`
	Roles       RoleQuotas    `json:"roles"`
	Timeouts    PhaseTimeouts `json:"timeouts"`
	Limits      SpeakLimits   `json:"limits"`
}

// EncodeConfig serializes a config for storage.
func EncodeConfig(cfg Config) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeGameConfigInvalid, "encode game config", err)
	}
	return data, nil
}

// DecodeConfig deserializes a stored config payload.
func DecodeConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode game config", err)
	}
	return cfg, nil
}

// Game is one persisted match.
//
// PhaseStartTime and PhaseTimeoutSeconds define the current phase deadline and
// are both nil exactly when the game is waiting or finished. WinnerTeam is
// non-nil iff the game is finished; the store does not enforce either
// invariant, the orchestrator owns them.
type Game struct {
	ID                  string
	Status              Status
	CurrentPhase        *Phase
	DayCount            int
	Config              Config
	PhaseStartTime      *time.Time
	PhaseTimeoutSeconds *int
	WinnerTeam          *WinnerTeam
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
