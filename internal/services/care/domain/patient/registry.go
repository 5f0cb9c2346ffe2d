package patient

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/louisbranch/carepaths/internal/services/care/domain/command"
	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
)

// RegisterCommands registers patient commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	validate := newValidator()
	definitions := []command.Definition{
		{Type: CommandTypeStartPath, ValidatePayload: payloadValidator[StartPath](validate)},
		{Type: CommandTypeScheduleSession, ValidatePayload: payloadValidator[ScheduleSession](validate)},
		{Type: CommandTypeAddAnotherProfessional, ValidatePayload: payloadValidator[AddAnotherProfessional](validate)},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEvents registers patient events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	validate := newValidator()
	definitions := []event.Definition{
		{
			Type:            EventTypePathStarted,
			Addressing:      event.AddressingPolicyEntityTarget,
			ValidatePayload: payloadValidator[PathStarted](validate),
		},
		{
			Type:            EventTypeSessionScheduled,
			Addressing:      event.AddressingPolicyEntityTarget,
			ValidatePayload: payloadValidator[SessionScheduled](validate),
		},
		{
			Type:            EventTypeProfessionalAdded,
			Addressing:      event.AddressingPolicyEntityTarget,
			ValidatePayload: payloadValidator[ProfessionalAdded](validate),
		},
		{
			Type:            EventTypeSessionsSequenceChanged,
			Addressing:      event.AddressingPolicyEntityTarget,
			ValidatePayload: payloadValidator[SessionsSequenceChanged](validate),
		},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or a nil func.
	_ = validate.RegisterValidation("path_type", func(fl validator.FieldLevel) bool {
		_, ok := RulesFor(PathType(fl.Field().String()))
		return ok
	})
	_ = validate.RegisterValidation("professional_role", func(fl validator.FieldLevel) bool {
		return ProfessionalRole(fl.Field().String()).Valid()
	})
	return validate
}

func payloadValidator[T any](validate *validator.Validate) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		payload, err := decodePayload[T](raw)
		if err != nil {
			return err
		}
		return validate.Struct(payload)
	}
}
