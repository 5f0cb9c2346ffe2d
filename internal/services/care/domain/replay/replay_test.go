package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
)

type fakeEventStore struct {
	events []event.Event
	calls  int
	err    error
}

func (s *fakeEventStore) ListEvents(_ context.Context, _ string, afterSeq uint64, limit int) ([]event.Event, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var page []event.Event
	for _, evt := range s.events {
		if evt.Seq > afterSeq && len(page) < limit {
			page = append(page, evt)
		}
	}
	return page, nil
}

func encoded(t *testing.T, evts ...patient.Event) []event.Event {
	t.Helper()
	now := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	envelopes := make([]event.Event, 0, len(evts))
	for i, evt := range evts {
		envelope, err := patient.EncodeEvent("patient-1", evt, now)
		if err != nil {
			t.Fatalf("encode event: %v", err)
		}
		envelope.Seq = uint64(i + 1)
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

func history(t *testing.T) []patient.Event {
	t.Helper()
	return []patient.Event{
		patient.PathStarted{PathID: "path-1", Type: patient.PathTypeWLM, ProfessionalID: "nt-id", ProfessionalRole: patient.RoleNutritionist},
		patient.SessionScheduled{SessionID: "s-1", PathType: patient.PathTypeWLM, StartAt: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), Duration: 60, State: patient.SessionStateScheduled, Sequence: 1},
		patient.SessionScheduled{SessionID: "s-2", PathType: patient.PathTypeWLM, StartAt: time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC), Duration: 60, State: patient.SessionStateScheduled, Sequence: 1},
		patient.SessionsSequenceChanged{PathType: patient.PathTypeWLM, Sessions: []patient.SequenceChange{{SessionID: "s-1", Sequence: 2}}},
		patient.ProfessionalAdded{PathType: patient.PathTypeWLM, ProfessionalID: "dt-id", ProfessionalRole: patient.RoleDietitian},
	}
}

func TestReplay_FoldsWholeLog(t *testing.T) {
	evts := history(t)
	store := &fakeEventStore{events: encoded(t, evts...)}

	result, err := Replay(context.Background(), store, "patient-1", patient.NewState("patient-1"), Options{PageSize: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.LastSeq != 5 || result.Applied != 5 {
		t.Fatalf("result = seq %d applied %d, want 5 and 5", result.LastSeq, result.Applied)
	}
	want := patient.Fold(patient.NewState("patient-1"), evts...)
	path, _ := result.State.FindPath(patient.PathTypeWLM)
	wantPath, _ := want.FindPath(patient.PathTypeWLM)
	if len(path.Sessions) != 2 || path.Sessions[0].Sequence != 2 || path.Sessions[1].Sequence != 1 {
		t.Fatalf("sessions = %+v", path.Sessions)
	}
	if len(path.Professionals) != len(wantPath.Professionals) {
		t.Fatalf("professionals = %+v, want %+v", path.Professionals, wantPath.Professionals)
	}
	if store.calls != 3 {
		t.Fatalf("list calls = %d, want 3", store.calls)
	}
}

func TestReplay_ResumesAfterSeq(t *testing.T) {
	evts := history(t)
	store := &fakeEventStore{events: encoded(t, evts...)}
	start := patient.Fold(patient.NewState("patient-1"), evts[:3]...)

	result, err := Replay(context.Background(), store, "patient-1", start, Options{AfterSeq: 3})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.Applied != 2 || result.LastSeq != 5 {
		t.Fatalf("result = seq %d applied %d, want 5 and 2", result.LastSeq, result.Applied)
	}
}

func TestReplay_StopsAtUntilSeq(t *testing.T) {
	store := &fakeEventStore{events: encoded(t, history(t)...)}

	result, err := Replay(context.Background(), store, "patient-1", patient.NewState("patient-1"), Options{UntilSeq: 2})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.LastSeq != 2 || result.Applied != 2 {
		t.Fatalf("result = seq %d applied %d, want 2 and 2", result.LastSeq, result.Applied)
	}
}

func TestReplay_EmptyLogKeepsState(t *testing.T) {
	result, err := Replay(context.Background(), &fakeEventStore{}, "patient-1", patient.NewState("patient-1"), Options{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if result.Applied != 0 || len(result.State.Paths) != 0 || result.State.ID != "patient-1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestReplay_DetectsGap(t *testing.T) {
	events := encoded(t, history(t)...)
	events[2].Seq = 9
	store := &fakeEventStore{events: events}

	_, err := Replay(context.Background(), store, "patient-1", patient.NewState("patient-1"), Options{PageSize: 10})
	if !errors.Is(err, ErrSequenceGap) {
		t.Fatalf("expected ErrSequenceGap, got %v", err)
	}
}

func TestReplay_UnknownEventType(t *testing.T) {
	events := encoded(t, history(t)[:1]...)
	events[0].Type = "path.closed"

	_, err := Replay(context.Background(), &fakeEventStore{events: events}, "patient-1", patient.NewState("patient-1"), Options{})
	if !errors.Is(err, event.ErrTypeUnknown) {
		t.Fatalf("expected ErrTypeUnknown, got %v", err)
	}
}

func TestReplay_RequiresInputs(t *testing.T) {
	if _, err := Replay(context.Background(), nil, "patient-1", patient.State{}, Options{}); !errors.Is(err, ErrEventStoreRequired) {
		t.Fatalf("expected ErrEventStoreRequired, got %v", err)
	}
	if _, err := Replay(context.Background(), &fakeEventStore{}, "  ", patient.State{}, Options{}); !errors.Is(err, ErrPatientIDRequired) {
		t.Fatalf("expected ErrPatientIDRequired, got %v", err)
	}
}

func TestReplay_PropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Replay(context.Background(), &fakeEventStore{err: boom}, "patient-1", patient.State{}, Options{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestReplay_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, &fakeEventStore{}, "patient-1", patient.State{}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
