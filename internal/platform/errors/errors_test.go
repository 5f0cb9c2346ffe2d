package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("decide: %w", New(CodeMissingPath, "path wlm not found"))
	if !errors.Is(err, New(CodeMissingPath, "")) {
		t.Fatal("expected error to match by code")
	}
	if errors.Is(err, New(CodePathAlreadyExists, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeUnknown, "append events", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: CodeUnknown},
		{name: "plain", err: errors.New("boom"), want: CodeUnknown},
		{name: "domain", err: New(CodeSequenceConflict, "conflict"), want: CodeSequenceConflict},
		{name: "wrapped", err: fmt.Errorf("outer: %w", New(CodeNotFound, "missing")), want: CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("CodeOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodePathAlreadyExists, codes.AlreadyExists},
		{CodeMissingPath, codes.NotFound},
		{CodeNotFound, codes.NotFound},
		{CodeMaxProfessionalsReached, codes.FailedPrecondition},
		{CodeProfessionalRoleAlreadyExists, codes.FailedPrecondition},
		{CodePathDoesNotSupportMultipleProfessionals, codes.FailedPrecondition},
		{CodeCommandInvalid, codes.InvalidArgument},
		{CodeSequenceConflict, codes.Aborted},
		{CodeUnknown, codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Fatalf("%s.GRPCCode() = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUnknown, 1},
		{"", 1},
		{CodeMissingPath, 5},
		{CodePathAlreadyExists, 6},
		{CodeMaxProfessionalsReached, 9},
		{CodeSequenceConflict, 10},
		{CodeCommandInvalid, 3},
		{CodeIDGenerationFailed, 13},
	}
	for _, tt := range tests {
		if got := tt.code.ExitStatus(); got != tt.want {
			t.Fatalf("%q.ExitStatus() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWithMetadata(t *testing.T) {
	cause := errors.New("stopped")
	err := fmt.Errorf("apply: %w", WithMetadata(CodeMissingPath, "path not found", map[string]string{"path_type": "wlm"}, cause))

	if got := MetadataOf(err)["path_type"]; got != "wlm" {
		t.Fatalf("path_type = %q, want wlm", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if CodeOf(err) != CodeMissingPath {
		t.Fatalf("code = %s", CodeOf(err))
	}
	if MetadataOf(errors.New("plain")) != nil {
		t.Fatal("expected no metadata on plain error")
	}
}

func TestErrorMessageFallsBackToCause(t *testing.T) {
	err := Wrap(CodeCommandInvalid, "", errors.New("bad payload"))
	if err.Error() != "bad payload" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
