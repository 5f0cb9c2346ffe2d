package patient

import "time"

// Event is a patient event. Every event carries all the data Evolve needs.
type Event interface {
	isEvent()
}

// PathStarted records a new path and its founding professional.
type PathStarted struct {
	PathID           string           `json:"path_id" validate:"required"`
	Type             PathType         `json:"type" validate:"required,path_type"`
	ProfessionalID   string           `json:"professional_id" validate:"required"`
	ProfessionalRole ProfessionalRole `json:"professional_role" validate:"required,professional_role"`
}

// SessionScheduled records a new session on a path.
type SessionScheduled struct {
	SessionID string       `json:"session_id" validate:"required"`
	PathType  PathType     `json:"path_type" validate:"required,path_type"`
	StartAt   time.Time    `json:"start_at" validate:"required"`
	Duration  int          `json:"duration" validate:"gt=0"`
	State     SessionState `json:"state" validate:"required,oneof=scheduled cancelled"`
	Sequence  int          `json:"sequence" validate:"gt=0"`
}

// ProfessionalAdded records one more professional on a path.
type ProfessionalAdded struct {
	PathType         PathType         `json:"path_type" validate:"required,path_type"`
	ProfessionalID   string           `json:"professional_id" validate:"required"`
	ProfessionalRole ProfessionalRole `json:"professional_role" validate:"required,professional_role"`
}

// SessionsSequenceChanged moves existing sessions of a path to new ranks.
type SessionsSequenceChanged struct {
	PathType PathType         `json:"path_type" validate:"required,path_type"`
	Sessions []SequenceChange `json:"sessions" validate:"required,min=1,dive"`
}

// SequenceChange is the new rank of one session.
type SequenceChange struct {
	SessionID string `json:"session_id" validate:"required"`
	Sequence  int    `json:"sequence" validate:"gt=0"`
}

func (PathStarted) isEvent()             {}
func (SessionScheduled) isEvent()        {}
func (ProfessionalAdded) isEvent()       {}
func (SessionsSequenceChanged) isEvent() {}
