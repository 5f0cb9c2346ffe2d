// Package errors provides structured, code-addressable domain errors.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Path errors
	CodePathAlreadyExists                       Code = "PATH_ALREADY_EXISTS"
	CodeMissingPath                             Code = "MISSING_PATH"
	CodeMaxProfessionalsReached                 Code = "MAX_PROFESSIONALS_REACHED"
	CodeProfessionalRoleAlreadyExists           Code = "PROFESSIONAL_ROLE_ALREADY_EXISTS"
	CodePathDoesNotSupportMultipleProfessionals Code = "PATH_DOES_NOT_SUPPORT_MULTIPLE_PROFESSIONALS"
	CodePathTypeUnsupported                     Code = "PATH_TYPE_UNSUPPORTED"

	// Command errors
	CodeCommandInvalid     Code = "COMMAND_INVALID"
	CodeIDGenerationFailed Code = "ID_GENERATION_FAILED"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeSequenceConflict Code = "SEQUENCE_CONFLICT"
)

// ExitStatus is the process exit status for c: the numeric gRPC code of
// GRPCCode, or 1 for CodeUnknown.
func (c Code) ExitStatus() int {
	if c == CodeUnknown || c == "" {
		return 1
	}
	return int(c.GRPCCode())
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeCommandInvalid,
		CodePathTypeUnsupported:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeMaxProfessionalsReached,
		CodeProfessionalRoleAlreadyExists,
		CodePathDoesNotSupportMultipleProfessionals:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeMissingPath:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodePathAlreadyExists:
		return codes.AlreadyExists

	// Aborted - concurrent writer won the append
	case CodeSequenceConflict:
		return codes.Aborted

	default:
		return codes.Internal
	}
}
