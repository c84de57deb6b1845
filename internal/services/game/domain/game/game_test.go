package game

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
)

func TestConfigRoundTrip(t *testing.T) {
	want := Config{
		PlayerCount: 5,
		Roles:       RoleQuotas{Villager: 2, FortuneTeller: 1, Werewolf: 1, Madman: 1},
		Timeouts:    PhaseTimeouts{DayDiscussion: 300, DayVoting: 60, NightAction: 120, NightConsultation: 180},
		Limits:      SpeakLimits{DaySpeaksPerPlayer: 5, NightWerewolfSpeaks: 10},
	}

	data, err := EncodeConfig(want)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	got, err := DecodeConfig(data)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeConfigMalformed(t *testing.T) {
	_, err := DecodeConfig([]byte(`{"player_count":`))
	if err == nil {
		t.Fatal("expected error for malformed config")
	}
	if !errors.Is(err, apperrors.New(apperrors.CodeDecodeFailed, "")) {
		t.Fatalf("expected decode error code, got %v", err)
	}
}

func TestStatusActive(t *testing.T) {
	if StatusWaiting.Active() || StatusFinished.Active() {
		t.Fatal("terminal statuses must not be active")
	}
	if !StatusDayPhase.Active() || !StatusNightPhase.Active() {
		t.Fatal("phase statuses must be active")
	}
}
