package phase

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/action"
)

func strptr(s string) *string { return &s }

func TestResultRoundTripAllVariants(t *testing.T) {
	results := []Result{
		NewVotingResult(
			map[string]string{"Bear": "Wolf", "Fox": "Wolf"},
			strptr("Wolf"),
			map[string]int{"Wolf": 2},
		),
		NewNightActionResult(
			strptr("Rabbit"),
			[]action.DivineResult{action.NewDivineResult("Wolf", action.VerdictWerewolf)},
			[]action.MediumResult{action.NewMediumResult("Bear", action.VerdictVillager)},
		),
		NewDiscussionResult(12, []string{"Bear", "Fox", "Rabbit"}),
		NewConsultationResult(4, []string{"Wolf"}),
	}

	for _, want := range results {
		data, err := EncodeResult(want)
		if err != nil {
			t.Fatalf("encode %T: %v", want, err)
		}
		got, err := DecodeResult(data)
		if err != nil {
			t.Fatalf("decode %T: %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestNightActionResultNoKill(t *testing.T) {
	want := NewNightActionResult(nil, nil, nil)

	data, err := EncodeResult(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeResult(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := DecodeResult([]byte(`{"phase":"twilight"}`))
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
	if !errors.Is(err, apperrors.New(apperrors.CodeDecodeFailed, "")) {
		t.Fatalf("expected decode error code, got %v", err)
	}
}

func TestHistoryOpen(t *testing.T) {
	h := History{}
	if !h.Open() {
		t.Fatal("expected nil EndedAt to be open")
	}
}
