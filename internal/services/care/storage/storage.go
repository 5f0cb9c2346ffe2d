package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/carepaths/internal/platform/errors"
	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrSequenceConflict indicates an append was based on a stale view of the
// patient's event log.
var ErrSequenceConflict = apperrors.New(apperrors.CodeSequenceConflict, "event sequence conflict")

// ErrPatientIDRequired indicates a missing patient id.
var ErrPatientIDRequired = errors.New("patient id is required")

// loadPageSize bounds each ListEvents call made by LoadEvents.
const loadPageSize = 500

// Snapshot is the folded state of a patient and the last event it includes.
type Snapshot struct {
	State     patient.State
	LastSeq   uint64
	UpdatedAt time.Time
}

// SnapshotStore persists one state snapshot per patient.
type SnapshotStore interface {
	// GetSnapshot returns ErrNotFound when the patient has no snapshot.
	GetSnapshot(ctx context.Context, patientID string) (Snapshot, error)
	PutSnapshot(ctx context.Context, snapshot Snapshot) error
	DeleteSnapshot(ctx context.Context, patientID string) error
}

// EventLog persists the ordered events of each patient.
type EventLog interface {
	// AppendEvents stores events after expectedSeq and returns them with
	// their assigned sequence numbers. It fails with ErrSequenceConflict when
	// the patient's last sequence is not expectedSeq.
	AppendEvents(ctx context.Context, patientID string, expectedSeq uint64, events []event.Event) ([]event.Event, error)
	// ListEvents returns up to limit events with Seq greater than afterSeq in
	// ascending order.
	ListEvents(ctx context.Context, patientID string, afterSeq uint64, limit int) ([]event.Event, error)
	DeleteEvents(ctx context.Context, patientID string) error
}

// PatientLister is implemented by stores that can enumerate their patients.
type PatientLister interface {
	// PatientIDs returns the stored patient ids in ascending order.
	PatientIDs(ctx context.Context) ([]string, error)
}

// LoadEvents returns the full event history of patientID.
func LoadEvents(ctx context.Context, log EventLog, patientID string) ([]event.Event, error) {
	var (
		events  []event.Event
		lastSeq uint64
	)
	for {
		page, err := log.ListEvents(ctx, patientID, lastSeq, loadPageSize)
		if err != nil {
			return nil, fmt.Errorf("list events after %d: %w", lastSeq, err)
		}
		events = append(events, page...)
		if len(page) < loadPageSize {
			return events, nil
		}
		lastSeq = page[len(page)-1].Seq
	}
}
