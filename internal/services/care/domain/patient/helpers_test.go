package patient

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

// sequentialIDs returns a generator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) IDGenerator {
	next := 0
	return func() (string, error) {
		next++
		return fmt.Sprintf("%s-%d", prefix, next), nil
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// apply decides cmd against state, requires acceptance and folds the events.
func apply(t *testing.T, state State, cmd Command, newID IDGenerator) (State, []Event) {
	t.Helper()
	decision := Decide(state, cmd, newID)
	if !decision.Accepted() {
		t.Fatalf("decide %T: rejected with %v", cmd, decision.Rejections)
	}
	return Fold(state, decision.Events...), decision.Events
}

func startedState(t *testing.T, pathType PathType, role ProfessionalRole) State {
	t.Helper()
	state, _ := apply(t, NewState("patient-1"), StartPath{
		Type:             pathType,
		ProfessionalID:   "pro-1",
		ProfessionalRole: role,
	}, sequentialIDs("path"))
	return state
}

func requireRejection(t *testing.T, decision Decision, code string) {
	t.Helper()
	if len(decision.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(decision.Events))
	}
	if len(decision.Rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(decision.Rejections))
	}
	if decision.Rejections[0].Code != code {
		t.Fatalf("rejection code = %s, want %s", decision.Rejections[0].Code, code)
	}
}

func assertSequences(t *testing.T, path Path, want map[string]int) {
	t.Helper()
	if len(path.Sessions) != len(want) {
		t.Fatalf("sessions = %d, want %d", len(path.Sessions), len(want))
	}
	for _, session := range path.Sessions {
		if session.Sequence != want[session.ID] {
			t.Fatalf("session %s sequence = %d, want %d", session.ID, session.Sequence, want[session.ID])
		}
	}
}

func assertStatesEqual(t *testing.T, got, want State) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("state mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}
