// Package phase defines phase-history entries and their JSON result payloads.
package phase

import "time"

// Type identifies a discrete phase of a game day.
type Type string

const (
	TypeDayDiscussion     Type = "day_discussion"
	TypeDayVoting         Type = "day_voting"
	TypeNightAction       Type = "night_action"
	TypeNightConsultation Type = "night_consultation"
)

// Types lists every known phase type in cycle order.
func Types() []Type {
	return []Type{TypeDayDiscussion, TypeDayVoting, TypeNightAction, TypeNightConsultation}
}

// History is one phase instance of a game.
//
// A nil EndedAt marks the phase as currently open; Results is populated only
// when the phase is closed. Closed entries are never mutated again.
type History struct {
	ID        int64
	GameID    string
	Phase     Type
	DayCount  int
	Results   Result
	StartedAt time.Time
	EndedAt   *time.Time
}

// Open reports whether the phase instance has not ended yet.
func (h History) Open() bool {
	return h.EndedAt == nil
}
