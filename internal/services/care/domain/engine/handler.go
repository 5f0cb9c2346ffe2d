package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	platformotel "github.com/louisbranch/carepaths/internal/platform/otel"
	"github.com/louisbranch/carepaths/internal/services/care/domain/command"
	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
	"github.com/louisbranch/carepaths/internal/services/care/observability/metrics"
	"github.com/louisbranch/carepaths/internal/services/care/storage"
)

const (
	defaultMaxRetries = 3
	tracerName        = "github.com/louisbranch/carepaths/internal/services/care/domain/engine"
)

// Handler executes patient commands. Log and Snapshots are both optional but
// at least one must be set. A Handler must not be copied after first use.
type Handler struct {
	Commands  *command.Registry
	Events    *event.Registry
	Log       storage.EventLog
	Snapshots storage.SnapshotStore

	// NewID mints path and session ids; nil uses the platform generator.
	NewID patient.IDGenerator
	Now   func() time.Time

	Logger  zerolog.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Metrics

	// MaxRetries bounds re-decisions after a sequence conflict.
	MaxRetries     int
	ReplayPageSize int

	locks patientLocks
}

// Result is the outcome of Execute.
type Result struct {
	Decision patient.Decision
	// Events are the stored envelopes of an accepted decision.
	Events  []event.Event
	State   patient.State
	LastSeq uint64
}

// Execute runs cmd against the patient it addresses. A rejected command
// returns its decision with a nil error and writes nothing.
func (h *Handler) Execute(ctx context.Context, cmd command.Command) (result Result, err error) {
	start := h.now()
	ctx, span := h.tracer().Start(ctx, "care.command.execute", trace.WithAttributes(
		attribute.String("carepaths.command.type", strings.TrimSpace(string(cmd.Type))),
		attribute.String("carepaths.patient.id", strings.TrimSpace(cmd.PatientID)),
	))
	defer func() {
		h.finish(span, cmd, result, err, h.now().Sub(start))
	}()

	if h.Commands == nil {
		return Result{}, ErrCommandRegistryRequired
	}
	if h.Log == nil && h.Snapshots == nil {
		return Result{}, ErrStoreRequired
	}
	validated, err := h.Commands.ValidateForDecision(cmd)
	if err != nil {
		return Result{}, err
	}
	cmd = validated
	typed, err := patient.DecodeCommand(cmd)
	if err != nil {
		return Result{}, err
	}

	release := h.locks.lock(cmd.PatientID)
	defer release()

	maxRetries := h.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	for attempt := 0; ; attempt++ {
		result, err = h.attempt(ctx, cmd, typed)
		if !errors.Is(err, storage.ErrSequenceConflict) {
			return result, err
		}
		h.Metrics.ObserveSequenceConflict(string(cmd.Type))
		span.AddEvent("sequence conflict", trace.WithAttributes(attribute.Int("attempt", attempt+1)))
		if attempt+1 >= maxRetries {
			return Result{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
		}
	}
}

// attempt loads, decides and persists once.
func (h *Handler) attempt(ctx context.Context, cmd command.Command, typed patient.Command) (Result, error) {
	state, lastSeq, err := h.load(ctx, cmd.PatientID)
	if err != nil {
		return Result{}, err
	}

	decision := patient.Decide(state, typed, h.NewID)
	if err := decision.Validate(); err != nil {
		return Result{}, fmt.Errorf("decide %s: %w", cmd.Type, err)
	}
	if !decision.Accepted() {
		return Result{Decision: decision, State: state, LastSeq: lastSeq}, nil
	}

	now := h.now()
	envelopes, err := patient.NewEvents(cmd, decision.Events, now)
	if err != nil {
		return Result{}, err
	}
	if h.Events != nil {
		for i, envelope := range envelopes {
			validated, err := h.Events.ValidateForAppend(envelope)
			if err != nil {
				return Result{}, fmt.Errorf("validate %s: %w", envelope.Type, err)
			}
			envelopes[i] = validated
		}
	}

	stored := envelopes
	if h.Log != nil {
		stored, err = h.Log.AppendEvents(ctx, cmd.PatientID, lastSeq, envelopes)
		if err != nil {
			return Result{}, err
		}
	} else {
		for i := range stored {
			stored[i].Seq = lastSeq + uint64(i) + 1
		}
	}
	lastSeq += uint64(len(stored))
	for _, evt := range stored {
		h.Metrics.AddEventsAppended(string(evt.Type))
	}

	next := patient.Fold(state, decision.Events...)
	if h.Snapshots != nil {
		if err := h.Snapshots.PutSnapshot(ctx, storage.Snapshot{State: next, LastSeq: lastSeq, UpdatedAt: now}); err != nil {
			err = fmt.Errorf("put snapshot: %w", err)
			if h.Log != nil {
				// The log already holds the events; the next load replays them.
				err = wrapNonRetryable(err)
			}
			return Result{}, err
		}
	}
	return Result{Decision: decision, Events: stored, State: next, LastSeq: lastSeq}, nil
}

// Delete removes every record of patientID from both stores.
func (h *Handler) Delete(ctx context.Context, patientID string) error {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return ErrPatientIDRequired
	}
	release := h.locks.lock(patientID)
	defer release()

	if h.Snapshots != nil {
		if err := h.Snapshots.DeleteSnapshot(ctx, patientID); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
	}
	if h.Log != nil {
		if err := h.Log.DeleteEvents(ctx, patientID); err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
	}
	h.Logger.Info().Str("patient_id", patientID).Msg("patient purged")
	return nil
}

func (h *Handler) finish(span trace.Span, cmd command.Command, result Result, err error, elapsed time.Duration) {
	defer span.End()

	cmdType := strings.TrimSpace(string(cmd.Type))
	outcome := metrics.OutcomeAccepted
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.Logger.Error().Err(err).
			Str("command_type", cmdType).
			Str("patient_id", cmd.PatientID).
			Bool("non_retryable", IsNonRetryable(err)).
			Msg("command failed")
	case !result.Decision.Accepted():
		outcome = metrics.OutcomeRejected
		rejection := result.Decision.Rejections[0]
		span.SetAttributes(attribute.String("carepaths.rejection.code", rejection.Code))
		h.Logger.Info().
			Str("command_type", cmdType).
			Str("patient_id", cmd.PatientID).
			Str("rejection_code", rejection.Code).
			Msg(rejection.Message)
	default:
		span.SetAttributes(
			attribute.Int("carepaths.events", len(result.Events)),
			attribute.Int64("carepaths.last_seq", int64(result.LastSeq)),
		)
		h.Logger.Info().
			Str("command_type", cmdType).
			Str("patient_id", cmd.PatientID).
			Int("events", len(result.Events)).
			Uint64("last_seq", result.LastSeq).
			Msg("command accepted")
	}
	h.Metrics.ObserveCommand(cmdType, outcome, elapsed)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *Handler) tracer() trace.Tracer {
	if h.Tracer != nil {
		return h.Tracer
	}
	return platformotel.Tracer(tracerName)
}
