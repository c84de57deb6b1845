// Package seed populates a database with a sample five player game for
// development and manual testing.
package seed

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	entrypoint "github.com/tsukino/jinro/internal/platform/cmd"
	"github.com/tsukino/jinro/internal/services/game/domain/action"
	"github.com/tsukino/jinro/internal/services/game/domain/chat"
	"github.com/tsukino/jinro/internal/services/game/domain/game"
	"github.com/tsukino/jinro/internal/services/game/domain/phase"
	"github.com/tsukino/jinro/internal/services/game/domain/player"
	"github.com/tsukino/jinro/internal/services/game/storage"
	storagesqlite "github.com/tsukino/jinro/internal/services/game/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath string `env:"JINRO_DB_PATH" envDefault:"jinro.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds the database with one sample game.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		store, err := storagesqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return Seed(ctx, store)
	})
}

func sampleConfig() game.Config {
	return game.Config{
		PlayerCount: 5,
		Roles: game.RoleQuotas{
			Villager:      2,
			FortuneTeller: 1,
			Werewolf:      1,
			Madman:        1,
		},
		Timeouts: game.PhaseTimeouts{
			DayDiscussion:     300,
			DayVoting:         60,
			NightAction:       120,
			NightConsultation: 180,
		},
		Limits: game.SpeakLimits{
			DaySpeaksPerPlayer:  5,
			NightWerewolfSpeaks: 10,
		},
	}
}

func newToken() string {
	return "token_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Seed writes one sample game with players, messages, actions, and a closed
// night phase into the store.
func Seed(ctx context.Context, store storage.Store) error {
	gameID := "game_" + uuid.NewString()
	log.Printf("creating game %s", gameID)

	if _, err := store.CreateGame(ctx, storage.NewGame{
		ID:     gameID,
		Status: game.StatusWaiting,
		Config: sampleConfig(),
	}); err != nil {
		return fmt.Errorf("create game: %w", err)
	}

	roster := []struct {
		name string
		role player.Role
	}{
		{"Bear", player.RoleVillager},
		{"Fox", player.RoleFortuneTeller},
		{"Wolf", player.RoleWerewolf},
		{"Rabbit", player.RoleVillager},
		{"Eagle", player.RoleMadman},
	}

	tokens := make(map[player.Role]string, len(roster))
	for _, entry := range roster {
		p, err := store.CreatePlayer(ctx, storage.NewPlayer{
			GameID: gameID,
			Name:   entry.name,
			Token:  newToken(),
			Role:   entry.role,
			Status: player.StatusAlive,
		})
		if err != nil {
			return fmt.Errorf("create player %s: %w", entry.name, err)
		}
		tokens[entry.role] = p.Token
		log.Printf("created player %s (%s)", p.Name, p.Role)
	}

	discussion := chat.PhaseDetailDiscussion
	consultation := chat.PhaseDetailConsultation
	messages := []storage.NewMessage{
		{GameID: gameID, PlayerName: "Bear", Body: "おはようございます。昨夜は平和でしたね。",
			Phase: chat.PhaseDay, PhaseDetail: &discussion, Target: chat.TargetAll, DayCount: 1},
		{GameID: gameID, PlayerName: "Fox", Body: "誰か怪しい人はいませんか？",
			Phase: chat.PhaseDay, PhaseDetail: &discussion, Target: chat.TargetAll, DayCount: 1},
		{GameID: gameID, PlayerName: "Wolf", Body: "今夜は誰を襲いましょうか？",
			Phase: chat.PhaseNight, PhaseDetail: &consultation, Target: chat.TargetWerewolf, DayCount: 1},
	}
	for _, m := range messages {
		if _, err := store.CreateMessage(ctx, m); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
	}

	wolfName := "Wolf"
	victim := "Rabbit"
	if _, err := store.CreateAction(ctx, storage.NewAction{
		GameID:       gameID,
		PlayerToken:  tokens[player.RoleFortuneTeller],
		Type:         action.TypeDivine,
		TargetPlayer: &wolfName,
		Result:       action.NewDivineResult(wolfName, action.VerdictWerewolf),
		DayCount:     1,
		Phase:        action.PhaseNight,
		Success:      true,
	}); err != nil {
		return fmt.Errorf("create divine action: %w", err)
	}
	if _, err := store.CreateAction(ctx, storage.NewAction{
		GameID:       gameID,
		PlayerToken:  tokens[player.RoleWerewolf],
		Type:         action.TypeKill,
		TargetPlayer: &victim,
		Result:       action.NewKillResult(victim),
		DayCount:     1,
		Phase:        action.PhaseNight,
		Success:      true,
	}); err != nil {
		return fmt.Errorf("create kill action: %w", err)
	}

	now := time.Now().UTC()
	night, err := store.StartPhase(ctx, gameID, phase.TypeNightAction, 1, now.Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("start night phase: %w", err)
	}
	results := phase.NewNightActionResult(&victim,
		[]action.DivineResult{action.NewDivineResult(wolfName, action.VerdictWerewolf)}, nil)
	if _, err := store.EndPhase(ctx, night.ID, now, results); err != nil {
		return fmt.Errorf("end night phase: %w", err)
	}

	log.Print("seeding completed")
	log.Printf("  game id: %s", gameID)
	log.Printf("  players: %d", len(roster))
	log.Print("  messages: 3")
	log.Print("  actions: 2")
	log.Print("  phase history: 1")
	return nil
}
