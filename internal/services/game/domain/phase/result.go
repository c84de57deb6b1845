package phase

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/services/game/domain/action"
)

// Result is the tagged phase outcome payload, discriminated by the "phase" field.
type Result interface {
	PhaseType() Type
}

// VotingResult is the outcome of a day voting phase.
type VotingResult struct {
	Phase      Type              `json:"phase"`
	Votes      map[string]string `json:"votes"`
	Executed   *string           `json:"executed"`
	VoteCounts map[string]int    `json:"vote_counts"`
}

// PhaseType implements Result.
func (VotingResult) PhaseType() Type { return TypeDayVoting }

// NewVotingResult builds a tagged voting result.
func NewVotingResult(votes map[string]string, executed *string, voteCounts map[string]int) VotingResult {
	return VotingResult{Phase: TypeDayVoting, Votes: votes, Executed: executed, VoteCounts: voteCounts}
}

// NightActionResult is the outcome of a night action phase.
type NightActionResult struct {
	Phase         Type                  `json:"phase"`
	Killed        *string               `json:"killed"`
	DivineResults []action.DivineResult `json:"divine_results,omitempty"`
	MediumResults []action.MediumResult `json:"medium_results,omitempty"`
}

// PhaseType implements Result.
func (NightActionResult) PhaseType() Type { return TypeNightAction }

// NewNightActionResult builds a tagged night action result.
func NewNightActionResult(killed *string, divine []action.DivineResult, medium []action.MediumResult) NightActionResult {
	return NightActionResult{Phase: TypeNightAction, Killed: killed, DivineResults: divine, MediumResults: medium}
}

// DiscussionResult is the outcome of a day discussion phase.
type DiscussionResult struct {
	Phase        Type     `json:"phase"`
	MessageCount int      `json:"message_count"`
	Participants []string `json:"participants"`
}

// PhaseType implements Result.
func (DiscussionResult) PhaseType() Type { return TypeDayDiscussion }

// NewDiscussionResult builds a tagged discussion result.
func NewDiscussionResult(messageCount int, participants []string) DiscussionResult {
	return DiscussionResult{Phase: TypeDayDiscussion, MessageCount: messageCount, Participants: participants}
}

// ConsultationResult is the outcome of a night consultation phase.
type ConsultationResult struct {
	Phase        Type     `json:"phase"`
	MessageCount int      `json:"message_count"`
	Participants []string `json:"participants"`
}

// PhaseType implements Result.
func (ConsultationResult) PhaseType() Type { return TypeNightConsultation }

// NewConsultationResult builds a tagged consultation result.
func NewConsultationResult(messageCount int, participants []string) ConsultationResult {
	return ConsultationResult{Phase: TypeNightConsultation, MessageCount: messageCount, Participants: participants}
}

// EncodeResult serializes a phase result for storage. A nil result encodes to
// nil, which the store persists as SQL NULL.
func EncodeResult(r Result) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePhaseResultInvalid, "encode phase result", err)
	}
	return data, nil
}

// DecodeResult deserializes a stored phase result by its "phase" tag.
func DecodeResult(data []byte) (Result, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var probe struct {
		Phase Type `json:"phase"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode phase result tag", err)
	}

	switch probe.Phase {
	case TypeDayVoting:
		var r VotingResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode voting result", err)
		}
		return r, nil
	case TypeNightAction:
		var r NightActionResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode night action result", err)
		}
		return r, nil
	case TypeDayDiscussion:
		var r DiscussionResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode discussion result", err)
		}
		return r, nil
	case TypeNightConsultation:
		var r ConsultationResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode consultation result", err)
		}
		return r, nil
	default:
		return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode phase result",
			fmt.Errorf("unknown phase result tag %q", probe.Phase))
	}
}
