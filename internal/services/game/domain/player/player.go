// Package player defines the per-game player roster entry.
package player

import "time"

// Role is a player's hidden role.
type Role string

const (
	RoleVillager      Role = "villager"
	RoleFortuneTeller Role = "fortune_teller"
	RoleMedium        Role = "medium"
	RoleWerewolf      Role = "werewolf"
	RoleMadman        Role = "madman"
)

// Roles lists every known role, in roster display order.
func Roles() []Role {
	return []Role{RoleVillager, RoleFortuneTeller, RoleMedium, RoleWerewolf, RoleMadman}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleVillager, RoleFortuneTeller, RoleMedium, RoleWerewolf, RoleMadman:
		return true
	}
	return false
}

// Team is the win-condition side a role belongs to.
type Team string

const (
	TeamVillage  Team = "village"
	TeamWerewolf Team = "werewolf"
)

// Team derives the side from the role: werewolf and madman play for the
// werewolf team, everyone else for the village.
func (r Role) Team() Team {
	if r == RoleWerewolf || r == RoleMadman {
		return TeamWerewolf
	}
	return TeamVillage
}

// Status describes whether a player is still in the game.
type Status string

const (
	StatusAlive Status = "alive"
	StatusDead  Status = "dead"
)

// DeathCause records how a dead player left the game.
type DeathCause string

const (
	DeathCauseExecuted DeathCause = "executed"
	DeathCauseKilled   DeathCause = "killed"
)

// Player is one roster entry.
//
// Token is the opaque secret that authenticates the player's actions; it is
// assigned at creation and never changes. DeathDay and DeathCause are both
// nil while alive and set together, once, when the player dies.
type Player struct {
	ID         int64
	GameID     string
	Name       string
	Token      string
	Role       Role
	Status     Status
	DeathDay   *int
	DeathCause *DeathCause
	CreatedAt  time.Time
}
