package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/storage"
)

const defaultListLimit = 200

// AppendEvents appends events after expectedSeq in one transaction.
func (s *Store) AppendEvents(ctx context.Context, patientID string, expectedSeq uint64, events []event.Event) ([]event.Event, error) {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prepared := make([]event.Event, len(events))
	for i, evt := range events {
		evt.PatientID = patientID
		if s.registry != nil {
			validated, err := s.registry.ValidateForAppend(evt)
			if err != nil {
				return nil, err
			}
			evt = validated
		}
		if evt.Timestamp.IsZero() {
			evt.Timestamp = now
		}
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
		evt.Seq = expectedSeq + uint64(i) + 1
		prepared[i] = evt
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM events WHERE patient_id = ?", patientID,
	).Scan(&current); err != nil {
		return nil, fmt.Errorf("read last seq: %w", err)
	}
	if uint64(current) != expectedSeq {
		return nil, fmt.Errorf("%w: expected %d, log at %d", storage.ErrSequenceConflict, expectedSeq, current)
	}

	for _, evt := range prepared {
		if _, err := tx.ExecContext(ctx, `INSERT INTO events (
    patient_id, seq, event_type, timestamp, actor_id, request_id,
    correlation_id, causation_id, entity_type, entity_id, payload_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			evt.PatientID, int64(evt.Seq), string(evt.Type), toMillis(evt.Timestamp), evt.ActorID, evt.RequestID,
			evt.CorrelationID, evt.CausationID, evt.EntityType, evt.EntityID, evt.PayloadJSON,
		); err != nil {
			if isConstraintError(err) || isBusyError(err) {
				return nil, fmt.Errorf("%w: seq %d: %v", storage.ErrSequenceConflict, evt.Seq, err)
			}
			return nil, fmt.Errorf("append event %d: %w", evt.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		if isBusyError(err) {
			return nil, fmt.Errorf("%w: %v", storage.ErrSequenceConflict, err)
		}
		return nil, fmt.Errorf("commit events: %w", err)
	}
	return prepared, nil
}

// ListEvents returns up to limit events after afterSeq. A non-positive
// limit uses a default page size.
func (s *Store) ListEvents(ctx context.Context, patientID string, afterSeq uint64, limit int) ([]event.Event, error) {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT
    seq, event_type, timestamp, actor_id, request_id, correlation_id,
    causation_id, entity_type, entity_id, payload_json
FROM events
WHERE patient_id = ? AND seq > ?
ORDER BY seq
LIMIT ?`, patientID, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			seq       int64
			eventType string
			timestamp int64
		)
		evt := event.Event{PatientID: patientID}
		if err := rows.Scan(
			&seq, &eventType, &timestamp, &evt.ActorID, &evt.RequestID, &evt.CorrelationID,
			&evt.CausationID, &evt.EntityType, &evt.EntityID, &evt.PayloadJSON,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Type = event.Type(eventType)
		evt.Timestamp = fromMillis(timestamp)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// DeleteEvents removes every event of patientID.
func (s *Store) DeleteEvents(ctx context.Context, patientID string) error {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM events WHERE patient_id = ?", patientID); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return nil
}

// PatientIDs lists the patients with at least one event.
func (s *Store) PatientIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, errors.New("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT DISTINCT patient_id FROM events ORDER BY patient_id")
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan patient id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return ids, nil
}

func (s *Store) check(ctx context.Context, patientID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", errors.New("storage is not configured")
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return "", storage.ErrPatientIDRequired
	}
	return patientID, nil
}
