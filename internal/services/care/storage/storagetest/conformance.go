// Package storagetest holds conformance checks every storage backend must
// pass. Backend packages call RunSnapshotStore and RunEventLog from their own
// tests with a constructor for a fresh, empty store.
package storagetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
	"github.com/louisbranch/carepaths/internal/services/care/storage"
)

// RunSnapshotStore checks the storage.SnapshotStore contract.
func RunSnapshotStore(t *testing.T, newStore func(t *testing.T) storage.SnapshotStore) {
	t.Helper()

	t.Run("missing snapshot", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetSnapshot(context.Background(), "patient-1")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put then get", func(t *testing.T) {
		store := newStore(t)
		want := storage.Snapshot{State: SampleState(), LastSeq: 5, UpdatedAt: time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)}
		if err := store.PutSnapshot(context.Background(), want); err != nil {
			t.Fatalf("put snapshot: %v", err)
		}
		got, err := store.GetSnapshot(context.Background(), "patient-1")
		if err != nil {
			t.Fatalf("get snapshot: %v", err)
		}
		if got.LastSeq != want.LastSeq || !got.UpdatedAt.Equal(want.UpdatedAt) {
			t.Fatalf("snapshot = seq %d at %s, want seq %d at %s", got.LastSeq, got.UpdatedAt, want.LastSeq, want.UpdatedAt)
		}
		if !reflect.DeepEqual(got.State, want.State) {
			t.Fatalf("state = %+v, want %+v", got.State, want.State)
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.PutSnapshot(ctx, storage.Snapshot{State: patient.NewState("patient-1"), LastSeq: 1}); err != nil {
			t.Fatalf("put snapshot: %v", err)
		}
		if err := store.PutSnapshot(ctx, storage.Snapshot{State: SampleState(), LastSeq: 5}); err != nil {
			t.Fatalf("put snapshot: %v", err)
		}
		got, err := store.GetSnapshot(ctx, "patient-1")
		if err != nil {
			t.Fatalf("get snapshot: %v", err)
		}
		if got.LastSeq != 5 || len(got.State.Paths) != 1 {
			t.Fatalf("snapshot = %+v", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.PutSnapshot(ctx, storage.Snapshot{State: SampleState(), LastSeq: 5}); err != nil {
			t.Fatalf("put snapshot: %v", err)
		}
		if err := store.DeleteSnapshot(ctx, "patient-1"); err != nil {
			t.Fatalf("delete snapshot: %v", err)
		}
		if _, err := store.GetSnapshot(ctx, "patient-1"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteSnapshot(ctx, "patient-1"); err != nil {
			t.Fatalf("delete missing snapshot: %v", err)
		}
	})

	t.Run("patient id required", func(t *testing.T) {
		store := newStore(t)
		if err := store.PutSnapshot(context.Background(), storage.Snapshot{}); err == nil {
			t.Fatal("expected error for empty patient id")
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := store.GetSnapshot(ctx, "patient-1"); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

// RunEventLog checks the storage.EventLog contract.
func RunEventLog(t *testing.T, newLog func(t *testing.T) storage.EventLog) {
	t.Helper()

	t.Run("append assigns sequences", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		first, err := log.AppendEvents(ctx, "patient-1", 0, SampleEvents(t)[:2])
		if err != nil {
			t.Fatalf("append events: %v", err)
		}
		second, err := log.AppendEvents(ctx, "patient-1", 2, SampleEvents(t)[2:])
		if err != nil {
			t.Fatalf("append events: %v", err)
		}
		all := append(first, second...)
		for i, evt := range all {
			if evt.Seq != uint64(i+1) || evt.PatientID != "patient-1" {
				t.Fatalf("event %d = seq %d patient %s", i, evt.Seq, evt.PatientID)
			}
		}
	})

	t.Run("stale append conflicts", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		if _, err := log.AppendEvents(ctx, "patient-1", 0, SampleEvents(t)[:1]); err != nil {
			t.Fatalf("append events: %v", err)
		}
		_, err := log.AppendEvents(ctx, "patient-1", 0, SampleEvents(t)[1:2])
		if !errors.Is(err, storage.ErrSequenceConflict) {
			t.Fatalf("expected ErrSequenceConflict, got %v", err)
		}
		events, err := storage.LoadEvents(ctx, log, "patient-1")
		if err != nil {
			t.Fatalf("load events: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("events after conflict = %d, want 1", len(events))
		}
	})

	t.Run("list pages in order", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		if _, err := log.AppendEvents(ctx, "patient-1", 0, SampleEvents(t)); err != nil {
			t.Fatalf("append events: %v", err)
		}
		page, err := log.ListEvents(ctx, "patient-1", 1, 2)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(page) != 2 || page[0].Seq != 2 || page[1].Seq != 3 {
			t.Fatalf("page = %+v", page)
		}
		empty, err := log.ListEvents(ctx, "patient-1", 99, 10)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("expected empty page, got %d", len(empty))
		}
	})

	t.Run("events round trip", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		want := SampleEvents(t)
		if _, err := log.AppendEvents(ctx, "patient-1", 0, want); err != nil {
			t.Fatalf("append events: %v", err)
		}
		got, err := storage.LoadEvents(ctx, log, "patient-1")
		if err != nil {
			t.Fatalf("load events: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("events = %d, want %d", len(got), len(want))
		}
		state := patient.NewState("patient-1")
		for i, evt := range got {
			if evt.Type != want[i].Type || evt.EntityID != want[i].EntityID || evt.ActorID != want[i].ActorID {
				t.Fatalf("event %d = %+v, want %+v", i, evt, want[i])
			}
			if !evt.Timestamp.Equal(want[i].Timestamp) {
				t.Fatalf("event %d timestamp = %s, want %s", i, evt.Timestamp, want[i].Timestamp)
			}
			decoded, err := patient.DecodeEvent(evt)
			if err != nil {
				t.Fatalf("decode event %d: %v", i, err)
			}
			state = patient.Evolve(state, decoded)
		}
		if !reflect.DeepEqual(state, SampleState()) {
			t.Fatalf("replayed state = %+v, want %+v", state, SampleState())
		}
	})

	t.Run("patients are isolated", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		if _, err := log.AppendEvents(ctx, "patient-1", 0, SampleEvents(t)); err != nil {
			t.Fatalf("append events: %v", err)
		}
		other, err := log.ListEvents(ctx, "patient-2", 0, 10)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(other) != 0 {
			t.Fatalf("patient-2 events = %d, want 0", len(other))
		}
	})

	t.Run("lists patients", func(t *testing.T) {
		log := newLog(t)
		lister, ok := log.(storage.PatientLister)
		if !ok {
			t.Skip("log does not list patients")
		}
		ctx := context.Background()
		for _, patientID := range []string{"patient-b", "patient-a"} {
			if _, err := log.AppendEvents(ctx, patientID, 0, SampleEvents(t)[:1]); err != nil {
				t.Fatalf("append events: %v", err)
			}
		}
		ids, err := lister.PatientIDs(ctx)
		if err != nil {
			t.Fatalf("patient ids: %v", err)
		}
		if !reflect.DeepEqual(ids, []string{"patient-a", "patient-b"}) {
			t.Fatalf("patient ids = %v", ids)
		}
	})

	t.Run("delete", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		if _, err := log.AppendEvents(ctx, "patient-1", 0, SampleEvents(t)); err != nil {
			t.Fatalf("append events: %v", err)
		}
		if err := log.DeleteEvents(ctx, "patient-1"); err != nil {
			t.Fatalf("delete events: %v", err)
		}
		events, err := storage.LoadEvents(ctx, log, "patient-1")
		if err != nil {
			t.Fatalf("load events: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("events after delete = %d", len(events))
		}
		if _, err := log.AppendEvents(ctx, "patient-1", 0, SampleEvents(t)[:1]); err != nil {
			t.Fatalf("append after delete: %v", err)
		}
	})

	t.Run("patient id required", func(t *testing.T) {
		log := newLog(t)
		if _, err := log.ListEvents(context.Background(), " ", 0, 10); err == nil {
			t.Fatal("expected error for empty patient id")
		}
	})
}

// SampleState is the state SampleEvents fold into.
func SampleState() patient.State {
	state := patient.NewState("patient-1")
	return patient.Fold(state, sampleDomainEvents()...)
}

// SampleEvents returns the encoded history of SampleState.
func SampleEvents(t *testing.T) []event.Event {
	t.Helper()
	now := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	var envelopes []event.Event
	for _, evt := range sampleDomainEvents() {
		envelope, err := patient.EncodeEvent("patient-1", evt, now)
		if err != nil {
			t.Fatalf("encode event: %v", err)
		}
		envelope.ActorID = "clinic"
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

func sampleDomainEvents() []patient.Event {
	return []patient.Event{
		patient.PathStarted{PathID: "path-1", Type: patient.PathTypeWLM, ProfessionalID: "nt-id", ProfessionalRole: patient.RoleNutritionist},
		patient.SessionScheduled{SessionID: "s-1", PathType: patient.PathTypeWLM, StartAt: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), Duration: 60, State: patient.SessionStateScheduled, Sequence: 1},
		patient.SessionScheduled{SessionID: "s-2", PathType: patient.PathTypeWLM, StartAt: time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC), Duration: 60, State: patient.SessionStateScheduled, Sequence: 1},
		patient.SessionsSequenceChanged{PathType: patient.PathTypeWLM, Sessions: []patient.SequenceChange{{SessionID: "s-1", Sequence: 2}}},
		patient.ProfessionalAdded{PathType: patient.PathTypeWLM, ProfessionalID: "dt-id", ProfessionalRole: patient.RoleDietitian},
	}
}
