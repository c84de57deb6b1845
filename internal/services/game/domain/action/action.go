// Package action defines the append-only game action log entries and their
// JSON result payloads.
package action

import "time"

// Type is the kind of action a player took.
type Type string

const (
	TypeDivine Type = "divine"
	TypeKill   Type = "kill"
	TypeVote   Type = "vote"
	TypeSpeak  Type = "speak"
)

// Types lists every known action type.
func Types() []Type {
	return []Type{TypeDivine, TypeKill, TypeVote, TypeSpeak}
}

// Phase is the half of the cycle the action was taken in.
type Phase string

const (
	PhaseDay   Phase = "day"
	PhaseNight Phase = "night"
)

// Action is one logged action.
//
// Success false records an attempted-but-rejected action for audit; such rows
// never count toward tallies. At most one success row may exist per
// (game, player, type, day, phase) key; the schema enforces this with a
// partial unique index.
type Action struct {
	ID           int64
	GameID       string
	PlayerToken  string
	Type         Type
	TargetPlayer *string
	Result       Result
	DayCount     int
	Phase        Phase
	Success      bool
	CreatedAt    time.Time
}
