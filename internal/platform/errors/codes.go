// Package errors provides structured error handling for the jinro services.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeDecodeFailed       Code = "DECODE_FAILED"
	CodeMigrationFailed    Code = "MIGRATION_FAILED"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"

	// Game errors
	CodeGameIDEmpty       Code = "GAME_ID_EMPTY"
	CodeGameConfigInvalid Code = "GAME_CONFIG_INVALID"

	// Player errors
	CodePlayerTokenEmpty Code = "PLAYER_TOKEN_EMPTY"
	CodePlayerNameEmpty  Code = "PLAYER_NAME_EMPTY"

	// Message errors
	CodeMessageBodyEmpty Code = "MESSAGE_BODY_EMPTY"

	// Action errors
	CodeActionResultInvalid Code = "ACTION_RESULT_INVALID"

	// Phase errors
	CodePhaseResultInvalid Code = "PHASE_RESULT_INVALID"
)

// GRPCCode maps the domain code onto the closest gRPC status code.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotFound:
		return codes.NotFound
	case CodeAlreadyExists:
		return codes.AlreadyExists
	case CodeDecodeFailed, CodeMigrationFailed:
		return codes.Internal
	case CodeStorageUnavailable:
		return codes.Unavailable
	case CodeUnknown:
		return codes.Unknown
	default:
		return codes.InvalidArgument
	}
}
