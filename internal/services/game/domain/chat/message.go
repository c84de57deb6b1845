// Package chat defines the append-only utterance log entries.
package chat

import "time"

// Phase is the half of the day/night cycle a message was spoken in.
type Phase string

const (
	PhaseDay   Phase = "day"
	PhaseNight Phase = "night"
)

// PhaseDetail narrows the phase a message belongs to.
type PhaseDetail string

const (
	PhaseDetailDiscussion   PhaseDetail = "discussion"
	PhaseDetailConsultation PhaseDetail = "consultation"
)

// Target is the audience a message is visible to.
type Target string

const (
	// TargetAll marks a public message every player can read.
	TargetAll Target = "all"
	// TargetWerewolf marks a message visible only to the werewolf team.
	TargetWerewolf Target = "werewolf"
)

// Message is one chat utterance.
//
// PlayerName is the display name, not the token; the log keeps no referential
// integrity to the roster beyond the name match.
type Message struct {
	ID          int64
	GameID      string
	PlayerName  string
	Body        string
	Phase       Phase
	PhaseDetail *PhaseDetail
	Target      Target
	DayCount    int
	CreatedAt   time.Time
}
