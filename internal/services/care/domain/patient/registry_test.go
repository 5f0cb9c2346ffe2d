package patient

import (
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/carepaths/internal/services/care/domain/command"
	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
)

func newRegistries(t *testing.T) (*command.Registry, *event.Registry) {
	t.Helper()
	commands := command.NewRegistry()
	if err := RegisterCommands(commands); err != nil {
		t.Fatalf("register commands: %v", err)
	}
	events := event.NewRegistry()
	if err := RegisterEvents(events); err != nil {
		t.Fatalf("register events: %v", err)
	}
	return commands, events
}

func TestRegisterCommands_RequiresRegistry(t *testing.T) {
	if err := RegisterCommands(nil); err == nil {
		t.Fatal("expected error for nil registry")
	}
	if err := RegisterEvents(nil); err == nil {
		t.Fatal("expected error for nil registry")
	}
}

func TestRegisterCommands_Twice(t *testing.T) {
	commands, _ := newRegistries(t)
	if err := RegisterCommands(commands); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegisterCommands_ListsDefinitions(t *testing.T) {
	commands, events := newRegistries(t)
	if got := len(commands.ListDefinitions()); got != 3 {
		t.Fatalf("command definitions = %d, want 3", got)
	}
	if got := len(events.ListDefinitions()); got != 4 {
		t.Fatalf("event definitions = %d, want 4", got)
	}
}

func TestCommandPayloadValidation(t *testing.T) {
	commands, _ := newRegistries(t)
	tests := []struct {
		name    string
		typ     command.Type
		payload string
		wantErr bool
	}{
		{name: "start ok", typ: CommandTypeStartPath, payload: `{"type":"wlm","professional_id":"nt-id","professional_role":"nutritionist"}`},
		{name: "start unknown type", typ: CommandTypeStartPath, payload: `{"type":"physio","professional_id":"nt-id","professional_role":"nutritionist"}`, wantErr: true},
		{name: "start unknown role", typ: CommandTypeStartPath, payload: `{"type":"wlm","professional_id":"nt-id","professional_role":"surgeon"}`, wantErr: true},
		{name: "start missing professional", typ: CommandTypeStartPath, payload: `{"type":"wlm","professional_role":"nutritionist"}`, wantErr: true},
		{name: "schedule ok", typ: CommandTypeScheduleSession, payload: `{"path_type":"psychotherapy","start_at":"2025-12-01T00:00:00Z"}`},
		{name: "schedule missing start", typ: CommandTypeScheduleSession, payload: `{"path_type":"psychotherapy"}`, wantErr: true},
		{name: "schedule bad time", typ: CommandTypeScheduleSession, payload: `{"path_type":"wlm","start_at":"tomorrow"}`, wantErr: true},
		{name: "add ok", typ: CommandTypeAddAnotherProfessional, payload: `{"path_type":"wlm","professional_id":"dt-id","professional_role":"dietitian"}`},
		{name: "add missing path type", typ: CommandTypeAddAnotherProfessional, payload: `{"professional_id":"dt-id","professional_role":"dietitian"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := commands.ValidateForDecision(command.Command{
				PatientID:   "patient-1",
				Type:        tt.typ,
				PayloadJSON: []byte(tt.payload),
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate error = %v, want error %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventPayloadValidation(t *testing.T) {
	_, events := newRegistries(t)
	now := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

	valid, err := EncodeEvent("patient-1", SessionsSequenceChanged{
		PathType: PathTypeWLM,
		Sessions: []SequenceChange{{SessionID: "s-1", Sequence: 2}},
	}, now)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	if _, err := events.ValidateForAppend(valid); err != nil {
		t.Fatalf("validate valid event: %v", err)
	}

	empty, err := EncodeEvent("patient-1", SessionsSequenceChanged{PathType: PathTypeWLM}, now)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	if _, err := events.ValidateForAppend(empty); err == nil {
		t.Fatal("expected error for empty sequence change")
	}

	unaddressed := valid
	unaddressed.EntityID = ""
	if _, err := events.ValidateForAppend(unaddressed); !errors.Is(err, event.ErrEntityIDRequired) {
		t.Fatalf("expected ErrEntityIDRequired, got %v", err)
	}
}
