package action

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
)

// ResultKind discriminates result payload variants via the "action" field.
//
// Medium readings share the divine payload shape but carry their own tag, so
// the kind set is not the action type set.
type ResultKind string

const (
	ResultKindDivine ResultKind = "divine"
	ResultKindKill   ResultKind = "kill"
	ResultKindVote   ResultKind = "vote"
	ResultKindMedium ResultKind = "medium"
)

// Verdict is the village/werewolf reading revealed by divine and medium results.
type Verdict string

const (
	VerdictVillager Verdict = "villager"
	VerdictWerewolf Verdict = "werewolf"
)

// Result is the tagged result payload attached to an action row.
type Result interface {
	Kind() ResultKind
}

// DivineResult is a fortune teller's reading of a target.
type DivineResult struct {
	Action  ResultKind `json:"action"`
	Target  string     `json:"target"`
	Verdict Verdict    `json:"result"`
}

// Kind implements Result.
func (DivineResult) Kind() ResultKind { return ResultKindDivine }

// NewDivineResult builds a tagged divine result.
func NewDivineResult(target string, verdict Verdict) DivineResult {
	return DivineResult{Action: ResultKindDivine, Target: target, Verdict: verdict}
}

// KillResult records the victim of a werewolf kill.
type KillResult struct {
	Action ResultKind `json:"action"`
	Target string     `json:"target"`
}

// Kind implements Result.
func (KillResult) Kind() ResultKind { return ResultKindKill }

// NewKillResult builds a tagged kill result.
func NewKillResult(target string) KillResult {
	return KillResult{Action: ResultKindKill, Target: target}
}

// VoteResult records the target of an execution vote.
type VoteResult struct {
	Action ResultKind `json:"action"`
	Target string     `json:"target"`
}

// Kind implements Result.
func (VoteResult) Kind() ResultKind { return ResultKindVote }

// NewVoteResult builds a tagged vote result.
func NewVoteResult(target string) VoteResult {
	return VoteResult{Action: ResultKindVote, Target: target}
}

// MediumResult is a medium's reading of an executed player.
type MediumResult struct {
	Action  ResultKind `json:"action"`
	Target  string     `json:"target"`
	Verdict Verdict    `json:"result"`
}

// Kind implements Result.
func (MediumResult) Kind() ResultKind { return ResultKindMedium }

// NewMediumResult builds a tagged medium result.
func NewMediumResult(target string, verdict Verdict) MediumResult {
	return MediumResult{Action: ResultKindMedium, Target: target, Verdict: verdict}
}

// EncodeResult serializes a result payload for storage. A nil result encodes
// to nil, which the store persists as SQL NULL.
func EncodeResult(r Result) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeActionResultInvalid, "encode action result", err)
	}
	return data, nil
}

// DecodeResult deserializes a stored result payload by its "action" tag.
func DecodeResult(data []byte) (Result, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var probe struct {
		Action ResultKind `json:"action"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode action result tag", err)
	}

	switch probe.Action {
	case ResultKindDivine:
		var r DivineResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode divine result", err)
		}
		return r, nil
	case ResultKindKill:
		var r KillResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode kill result", err)
		}
		return r, nil
	case ResultKindVote:
		var r VoteResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode vote result", err)
		}
		return r, nil
	case ResultKindMedium:
		var r MediumResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode medium result", err)
		}
		return r, nil
	default:
		return nil, apperrors.Wrap(apperrors.CodeDecodeFailed, "decode action result",
			fmt.Errorf("unknown action result tag %q", probe.Action))
	}
}
