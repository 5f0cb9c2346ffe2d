// Package script reads YAML command scripts for one patient.
//
// A script lists commands in the order they should run:
//
//	actor_id: clinic
//	commands:
//	  - type: start_path
//	    path_type: wlm
//	    professional_id: nt-id
//	    professional_role: nutritionist
//	  - type: schedule_session
//	    path_type: wlm
//	    start_at: 2025-12-01T09:00:00Z
//	  - type: add_another_professional
//	    path_type: wlm
//	    professional_id: dt-id
//	    professional_role: dietitian
package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/carepaths/internal/services/care/domain/command"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
)

// Entry types accepted in a script.
const (
	EntryStartPath              = "start_path"
	EntryScheduleSession        = "schedule_session"
	EntryAddAnotherProfessional = "add_another_professional"
)

// ErrEmpty indicates a script without commands.
var ErrEmpty = errors.New("script has no commands")

// Script is the decoded form of a script file.
type Script struct {
	PatientID string  `yaml:"patient_id"`
	ActorID   string  `yaml:"actor_id"`
	Commands  []Entry `yaml:"commands"`
}

// Entry is one command of a script.
type Entry struct {
	Type             string    `yaml:"type"`
	PathType         string    `yaml:"path_type"`
	ProfessionalID   string    `yaml:"professional_id"`
	ProfessionalRole string    `yaml:"professional_role"`
	StartAt          time.Time `yaml:"start_at"`
}

// Parse decodes a script. Unknown keys are rejected.
func Parse(r io.Reader) (Script, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var script Script
	if err := decoder.Decode(&script); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, ErrEmpty
		}
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	if len(script.Commands) == 0 {
		return Script{}, ErrEmpty
	}
	return script, nil
}

// ParseFile reads and decodes the script at path.
func ParseFile(path string) (Script, error) {
	file, err := os.Open(path)
	if err != nil {
		return Script{}, fmt.Errorf("open script: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Envelopes converts the script into command envelopes. A non-empty patientID
// overrides the one in the script.
func (s Script) Envelopes(patientID string) ([]command.Command, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		patientID = strings.TrimSpace(s.PatientID)
	}
	if patientID == "" {
		return nil, errors.New("patient id is required")
	}

	commands := make([]command.Command, 0, len(s.Commands))
	for i, entry := range s.Commands {
		typed, err := entry.command()
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		encoded, err := patient.EncodeCommand(patientID, typed)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		encoded.ActorID = s.ActorID
		commands = append(commands, encoded)
	}
	return commands, nil
}

func (e Entry) command() (patient.Command, error) {
	pathType := patient.PathType(strings.TrimSpace(e.PathType))
	role := patient.ProfessionalRole(strings.TrimSpace(e.ProfessionalRole))
	switch strings.TrimSpace(e.Type) {
	case EntryStartPath:
		return patient.StartPath{Type: pathType, ProfessionalID: strings.TrimSpace(e.ProfessionalID), ProfessionalRole: role}, nil
	case EntryScheduleSession:
		return patient.ScheduleSession{PathType: pathType, StartAt: e.StartAt}, nil
	case EntryAddAnotherProfessional:
		return patient.AddAnotherProfessional{PathType: pathType, ProfessionalID: strings.TrimSpace(e.ProfessionalID), ProfessionalRole: role}, nil
	case "":
		return nil, errors.New("type is required")
	default:
		return nil, fmt.Errorf("unknown type %q", e.Type)
	}
}
