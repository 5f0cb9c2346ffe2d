package patient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/carepaths/internal/services/care/domain/command"
	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
)

const (
	CommandTypeStartPath              command.Type = "path.start"
	CommandTypeScheduleSession        command.Type = "path.schedule_session"
	CommandTypeAddAnotherProfessional command.Type = "path.add_professional"

	EventTypePathStarted             event.Type = "path.started"
	EventTypeSessionScheduled        event.Type = "path.session_scheduled"
	EventTypeProfessionalAdded       event.Type = "path.professional_added"
	EventTypeSessionsSequenceChanged event.Type = "path.sessions_sequence_changed"
)

// Entity types used to address events.
const (
	EntityTypePath         = "path"
	EntityTypeSession      = "session"
	EntityTypeProfessional = "professional"
)

// CommandType returns the wire type of cmd.
func CommandType(cmd Command) command.Type {
	switch cmd.(type) {
	case StartPath:
		return CommandTypeStartPath
	case ScheduleSession:
		return CommandTypeScheduleSession
	case AddAnotherProfessional:
		return CommandTypeAddAnotherProfessional
	default:
		panic(fmt.Sprintf("patient: unhandled command %T", cmd))
	}
}

// EncodeCommand wraps cmd in an envelope addressed to patientID.
func EncodeCommand(patientID string, cmd Command) (command.Command, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return command.Command{}, fmt.Errorf("encode command payload: %w", err)
	}
	return command.Command{
		PatientID:   patientID,
		Type:        CommandType(cmd),
		PayloadJSON: payload,
	}, nil
}

// DecodeCommand returns the typed command carried by cmd.
func DecodeCommand(cmd command.Command) (Command, error) {
	switch cmd.Type {
	case CommandTypeStartPath:
		return decodePayload[StartPath](cmd.PayloadJSON)
	case CommandTypeScheduleSession:
		return decodePayload[ScheduleSession](cmd.PayloadJSON)
	case CommandTypeAddAnotherProfessional:
		return decodePayload[AddAnotherProfessional](cmd.PayloadJSON)
	default:
		return nil, fmt.Errorf("%w: %s", command.ErrTypeUnknown, cmd.Type)
	}
}

// EncodeEvent wraps evt in an envelope for patientID stamped with now. The
// sequence number is left for the event log to assign.
func EncodeEvent(patientID string, evt Event, now time.Time) (event.Event, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("encode event payload: %w", err)
	}
	envelope := event.Event{
		PatientID:   patientID,
		Timestamp:   now.UTC(),
		PayloadJSON: payload,
	}
	switch e := evt.(type) {
	case PathStarted:
		envelope.Type = EventTypePathStarted
		envelope.EntityType, envelope.EntityID = EntityTypePath, e.PathID
	case SessionScheduled:
		envelope.Type = EventTypeSessionScheduled
		envelope.EntityType, envelope.EntityID = EntityTypeSession, e.SessionID
	case ProfessionalAdded:
		envelope.Type = EventTypeProfessionalAdded
		envelope.EntityType, envelope.EntityID = EntityTypeProfessional, e.ProfessionalID
	case SessionsSequenceChanged:
		envelope.Type = EventTypeSessionsSequenceChanged
		envelope.EntityType, envelope.EntityID = EntityTypePath, string(e.PathType)
	default:
		panic(fmt.Sprintf("patient: unhandled event %T", evt))
	}
	return envelope, nil
}

// NewEvents encodes the events decided for cmd, carrying its actor and
// request metadata onto every envelope.
func NewEvents(cmd command.Command, events []Event, now time.Time) ([]event.Event, error) {
	envelopes := make([]event.Event, 0, len(events))
	for _, evt := range events {
		envelope, err := EncodeEvent(cmd.PatientID, evt, now)
		if err != nil {
			return nil, err
		}
		envelope.ActorID = cmd.ActorID
		envelope.RequestID = cmd.RequestID
		envelope.CorrelationID = cmd.CorrelationID
		envelope.CausationID = cmd.RequestID
		envelopes = append(envelopes, envelope)
	}
	return envelopes, nil
}

// DecodeEvent returns the typed event carried by evt.
func DecodeEvent(evt event.Event) (Event, error) {
	switch evt.Type {
	case EventTypePathStarted:
		return decodePayload[PathStarted](evt.PayloadJSON)
	case EventTypeSessionScheduled:
		return decodePayload[SessionScheduled](evt.PayloadJSON)
	case EventTypeProfessionalAdded:
		return decodePayload[ProfessionalAdded](evt.PayloadJSON)
	case EventTypeSessionsSequenceChanged:
		return decodePayload[SessionsSequenceChanged](evt.PayloadJSON)
	default:
		return nil, fmt.Errorf("%w: %s", event.ErrTypeUnknown, evt.Type)
	}
}

func decodePayload[T any](data []byte) (T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("decode %T payload: %w", payload, err)
	}
	return payload, nil
}
