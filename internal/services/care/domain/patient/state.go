package patient

import "time"

// PathType identifies a kind of care path.
type PathType string

const (
	PathTypeWLM           PathType = "wlm"
	PathTypePsychotherapy PathType = "psychotherapy"
)

// ProfessionalRole identifies what a professional does on a path.
type ProfessionalRole string

const (
	RoleNutritionist ProfessionalRole = "nutritionist"
	RoleDietitian    ProfessionalRole = "dietitian"
	RolePsychologist ProfessionalRole = "psychologist"
)

// Valid reports whether r is a known role.
func (r ProfessionalRole) Valid() bool {
	switch r {
	case RoleNutritionist, RoleDietitian, RolePsychologist:
		return true
	}
	return false
}

// SessionState is the lifecycle state of a scheduled session.
type SessionState string

const (
	SessionStateScheduled SessionState = "scheduled"
	SessionStateCancelled SessionState = "cancelled"
)

// State is the patient aggregate.
type State struct {
	ID    string `json:"id"`
	Paths []Path `json:"paths"`
}

// Path is one care path of a patient.
type Path struct {
	ID            string         `json:"id"`
	Type          PathType       `json:"type"`
	Professionals []Professional `json:"professionals"`
	Sessions      []Session      `json:"sessions"`
}

// Professional is a professional assigned to a path.
type Professional struct {
	ID   string           `json:"id"`
	Role ProfessionalRole `json:"role"`
}

// Session is a session scheduled on a path. Sessions keep insertion order;
// Sequence is the session's 1-based rank by StartAt.
type Session struct {
	ID       string       `json:"id"`
	StartAt  time.Time    `json:"start_at"`
	State    SessionState `json:"state"`
	Duration int          `json:"duration"`
	Sequence int          `json:"sequence"`
}

// NewState returns the zero state for a patient.
func NewState(patientID string) State {
	return State{ID: patientID, Paths: []Path{}}
}

// FindPath returns the path of the given type.
func (s State) FindPath(pathType PathType) (Path, bool) {
	for _, path := range s.Paths {
		if path.Type == pathType {
			return path, true
		}
	}
	return Path{}, false
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	cloned := State{ID: s.ID, Paths: make([]Path, len(s.Paths))}
	for i, path := range s.Paths {
		cloned.Paths[i] = path.clone()
	}
	return cloned
}

func (p Path) clone() Path {
	cloned := p
	cloned.Professionals = append(make([]Professional, 0, len(p.Professionals)), p.Professionals...)
	cloned.Sessions = append(make([]Session, 0, len(p.Sessions)), p.Sessions...)
	return cloned
}
