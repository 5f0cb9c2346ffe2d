package patient

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/carepaths/internal/platform/errors"
	"github.com/louisbranch/carepaths/internal/platform/id"
	"github.com/louisbranch/carepaths/internal/services/care/domain/command"
)

// Rejection codes returned by Decide.
const (
	RejectionCodePathAlreadyExists                       = string(apperrors.CodePathAlreadyExists)
	RejectionCodeMissingPath                             = string(apperrors.CodeMissingPath)
	RejectionCodeMaxProfessionalsReached                 = string(apperrors.CodeMaxProfessionalsReached)
	RejectionCodeProfessionalRoleAlreadyExists           = string(apperrors.CodeProfessionalRoleAlreadyExists)
	RejectionCodePathDoesNotSupportMultipleProfessionals = string(apperrors.CodePathDoesNotSupportMultipleProfessionals)
	RejectionCodePathTypeUnsupported                     = string(apperrors.CodePathTypeUnsupported)
	RejectionCodeIDGenerationFailed                      = string(apperrors.CodeIDGenerationFailed)

	// RejectionCodePathNotFound is the historical name of RejectionCodeMissingPath.
	RejectionCodePathNotFound = RejectionCodeMissingPath
)

// IsMissingPath reports whether code means the addressed path does not exist.
// Both MISSING_PATH and the older PATH_NOT_FOUND spelling match.
func IsMissingPath(code string) bool {
	return code == RejectionCodeMissingPath || code == "PATH_NOT_FOUND"
}

// Decision is the outcome of Decide.
type Decision = command.Decision[Event]

// IDGenerator mints identifiers for new paths and sessions.
type IDGenerator func() (string, error)

// Decide returns the events cmd produces against state, or the rejection
// explaining why it produces none. It never mutates state.
//
// A nil newID falls back to id.NewID.
func Decide(state State, cmd Command, newID IDGenerator) Decision {
	if newID == nil {
		newID = id.NewID
	}
	switch c := cmd.(type) {
	case StartPath:
		return decideStartPath(state, c, newID)
	case AddAnotherProfessional:
		return decideAddAnotherProfessional(state, c)
	case ScheduleSession:
		return decideScheduleSession(state, c, newID)
	default:
		panic(fmt.Sprintf("patient: unhandled command %T", cmd))
	}
}

func decideStartPath(state State, cmd StartPath, newID IDGenerator) Decision {
	if _, ok := RulesFor(cmd.Type); !ok {
		return unsupportedPathType(cmd.Type)
	}
	if _, exists := state.FindPath(cmd.Type); exists {
		return reject(RejectionCodePathAlreadyExists, fmt.Sprintf("path %s already exists", cmd.Type))
	}
	pathID, err := newID()
	if err != nil {
		return reject(RejectionCodeIDGenerationFailed, fmt.Sprintf("generate path id: %v", err))
	}
	return command.Accept[Event](PathStarted{
		PathID:           pathID,
		Type:             cmd.Type,
		ProfessionalID:   cmd.ProfessionalID,
		ProfessionalRole: cmd.ProfessionalRole,
	})
}

func decideAddAnotherProfessional(state State, cmd AddAnotherProfessional) Decision {
	path, ok := state.FindPath(cmd.PathType)
	if !ok {
		return missingPath(cmd.PathType)
	}
	rules, ok := RulesFor(path.Type)
	if !ok {
		return unsupportedPathType(path.Type)
	}
	if rejection := rules.CanHaveAnotherProfessional(path, cmd.ProfessionalRole); rejection != nil {
		return command.Reject[Event](*rejection)
	}
	return command.Accept[Event](ProfessionalAdded{
		PathType:         cmd.PathType,
		ProfessionalID:   cmd.ProfessionalID,
		ProfessionalRole: cmd.ProfessionalRole,
	})
}

func decideScheduleSession(state State, cmd ScheduleSession, newID IDGenerator) Decision {
	path, ok := state.FindPath(cmd.PathType)
	if !ok {
		return missingPath(cmd.PathType)
	}
	rules, ok := RulesFor(path.Type)
	if !ok {
		return unsupportedPathType(path.Type)
	}
	sessionID, err := newID()
	if err != nil {
		return reject(RejectionCodeIDGenerationFailed, fmt.Sprintf("generate session id: %v", err))
	}

	startAt := cmd.StartAt.UTC()
	sequence, shifted := insertionRank(path.Sessions, startAt)
	events := []Event{SessionScheduled{
		SessionID: sessionID,
		PathType:  cmd.PathType,
		StartAt:   startAt,
		Duration:  rules.SessionDuration,
		State:     SessionStateScheduled,
		Sequence:  sequence,
	}}
	if len(shifted) > 0 {
		events = append(events, SessionsSequenceChanged{
			PathType: cmd.PathType,
			Sessions: shifted,
		})
	}
	return command.Accept(events...)
}

// insertionRank returns the rank a session starting at startAt takes among
// sessions, and the new ranks of the sessions it pushes back. A session
// starting at the same instant as an existing one is ranked before it.
func insertionRank(sessions []Session, startAt time.Time) (int, []SequenceChange) {
	sequence := 1
	var shifted []SequenceChange
	for _, session := range sessions {
		if session.StartAt.Before(startAt) {
			sequence++
			continue
		}
		shifted = append(shifted, SequenceChange{
			SessionID: session.ID,
			Sequence:  session.Sequence + 1,
		})
	}
	return sequence, shifted
}

func missingPath(pathType PathType) Decision {
	return reject(RejectionCodeMissingPath, fmt.Sprintf("path %s not found", pathType))
}

func reject(code, message string) Decision {
	return command.Reject[Event](command.Rejection{Code: code, Message: message})
}

func unsupportedPathType(pathType PathType) Decision {
	supported := make([]string, 0, len(pathRules))
	for _, known := range SupportedPathTypes() {
		supported = append(supported, string(known))
	}
	return reject(RejectionCodePathTypeUnsupported,
		fmt.Sprintf("path type %q is not supported (supported: %s)", pathType, strings.Join(supported, ", ")))
}
