package patient

import "time"

// Command is a patient command. The set is closed: StartPath, ScheduleSession
// and AddAnotherProfessional.
type Command interface {
	isCommand()
}

// StartPath opens a path of Type with its founding professional.
type StartPath struct {
	Type             PathType         `json:"type" validate:"required,path_type"`
	ProfessionalID   string           `json:"professional_id" validate:"required"`
	ProfessionalRole ProfessionalRole `json:"professional_role" validate:"required,professional_role"`
}

// ScheduleSession schedules a session on the path of PathType.
type ScheduleSession struct {
	PathType PathType  `json:"path_type" validate:"required,path_type"`
	StartAt  time.Time `json:"start_at" validate:"required"`
}

// AddAnotherProfessional assigns one more professional to the path of PathType.
type AddAnotherProfessional struct {
	PathType         PathType         `json:"path_type" validate:"required,path_type"`
	ProfessionalID   string           `json:"professional_id" validate:"required"`
	ProfessionalRole ProfessionalRole `json:"professional_role" validate:"required,professional_role"`
}

func (StartPath) isCommand()              {}
func (ScheduleSession) isCommand()        {}
func (AddAnotherProfessional) isCommand() {}
