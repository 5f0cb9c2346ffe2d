package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
	"github.com/louisbranch/carepaths/internal/services/care/domain/replay"
	"github.com/louisbranch/carepaths/internal/services/care/storage"
)

// Load returns the current state of patientID and the last event sequence it
// includes. A patient with no history loads as patient.NewState.
func (h *Handler) Load(ctx context.Context, patientID string) (patient.State, uint64, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return patient.State{}, 0, ErrPatientIDRequired
	}
	if h.Log == nil && h.Snapshots == nil {
		return patient.State{}, 0, ErrStoreRequired
	}
	return h.load(ctx, patientID)
}

// History returns every event recorded for patientID.
func (h *Handler) History(ctx context.Context, patientID string) ([]event.Event, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrPatientIDRequired
	}
	if h.Log == nil {
		return nil, ErrEventLogRequired
	}
	return storage.LoadEvents(ctx, h.Log, patientID)
}

// Patients returns the ids known to either store, sorted. Stores that cannot
// enumerate patients are skipped.
func (h *Handler) Patients(ctx context.Context) ([]string, error) {
	if h.Log == nil && h.Snapshots == nil {
		return nil, ErrStoreRequired
	}
	seen := make(map[string]struct{})
	for _, store := range []any{h.Log, h.Snapshots} {
		lister, ok := store.(storage.PatientLister)
		if !ok {
			continue
		}
		ids, err := lister.PatientIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list patients: %w", err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	patients := make([]string, 0, len(seen))
	for id := range seen {
		patients = append(patients, id)
	}
	sort.Strings(patients)
	return patients, nil
}

// load starts from the snapshot when one exists and replays the log tail on
// top of it.
func (h *Handler) load(ctx context.Context, patientID string) (patient.State, uint64, error) {
	state := patient.NewState(patientID)
	var lastSeq uint64

	if h.Snapshots != nil {
		snapshot, err := h.Snapshots.GetSnapshot(ctx, patientID)
		switch {
		case err == nil:
			state, lastSeq = snapshot.State, snapshot.LastSeq
		case errors.Is(err, storage.ErrNotFound):
		default:
			return patient.State{}, 0, fmt.Errorf("get snapshot: %w", err)
		}
	}
	if h.Log == nil {
		return state, lastSeq, nil
	}
	if lastSeq > 0 {
		held, err := h.Log.ListEvents(ctx, patientID, lastSeq-1, 1)
		if err != nil {
			return patient.State{}, 0, fmt.Errorf("check snapshot against log: %w", err)
		}
		if len(held) == 0 {
			// Snapshot written without this log, e.g. in snapshots-only mode.
			h.Logger.Warn().
				Str("patient_id", patientID).
				Uint64("snapshot_seq", lastSeq).
				Msg("snapshot ahead of event log, replaying from start")
			state, lastSeq = patient.NewState(patientID), 0
		}
	}

	result, err := replay.Replay(ctx, h.Log, patientID, state, replay.Options{AfterSeq: lastSeq, PageSize: h.ReplayPageSize})
	if err != nil {
		return patient.State{}, 0, fmt.Errorf("replay events: %w", err)
	}
	return result.State, result.LastSeq, nil
}
