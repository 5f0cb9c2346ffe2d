// Package memory keeps snapshots and event logs in process memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/storage"
)

// Store implements storage.SnapshotStore and storage.EventLog.
type Store struct {
	mu        sync.Mutex
	snapshots map[string]storage.Snapshot
	events    map[string][]event.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		snapshots: make(map[string]storage.Snapshot),
		events:    make(map[string][]event.Event),
	}
}

// GetSnapshot returns the snapshot of patientID.
func (s *Store) GetSnapshot(ctx context.Context, patientID string) (storage.Snapshot, error) {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return storage.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.snapshots[patientID]
	if !ok {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	snapshot.State = snapshot.State.Clone()
	return snapshot, nil
}

// PutSnapshot replaces the snapshot of the snapshot's patient.
func (s *Store) PutSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	patientID, err := s.check(ctx, snapshot.State.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.State = snapshot.State.Clone()
	s.snapshots[patientID] = snapshot
	return nil
}

// DeleteSnapshot removes the snapshot of patientID. Deleting a missing
// snapshot is not an error.
func (s *Store) DeleteSnapshot(ctx context.Context, patientID string) error {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, patientID)
	return nil
}

// AppendEvents appends events after expectedSeq.
func (s *Store) AppendEvents(ctx context.Context, patientID string, expectedSeq uint64, events []event.Event) ([]event.Event, error) {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := uint64(len(s.events[patientID]))
	if current != expectedSeq {
		return nil, fmt.Errorf("%w: expected %d, log at %d", storage.ErrSequenceConflict, expectedSeq, current)
	}
	stored := make([]event.Event, len(events))
	for i, evt := range events {
		evt.PatientID = patientID
		evt.Seq = current + uint64(i) + 1
		evt.PayloadJSON = append([]byte(nil), evt.PayloadJSON...)
		stored[i] = evt
	}
	s.events[patientID] = append(s.events[patientID], stored...)
	return append([]event.Event(nil), stored...), nil
}

// ListEvents returns up to limit events after afterSeq.
func (s *Store) ListEvents(ctx context.Context, patientID string, afterSeq uint64, limit int) ([]event.Event, error) {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.events[patientID]
	if afterSeq >= uint64(len(log)) {
		return nil, nil
	}
	page := log[afterSeq:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return append([]event.Event(nil), page...), nil
}

// DeleteEvents removes the event log of patientID.
func (s *Store) DeleteEvents(ctx context.Context, patientID string) error {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, patientID)
	return nil
}

func (s *Store) check(ctx context.Context, patientID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil {
		return "", errors.New("memory store is required")
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return "", storage.ErrPatientIDRequired
	}
	return patientID, nil
}

// PatientIDs lists patients with a snapshot or at least one event.
func (s *Store) PatientIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.snapshots)+len(s.events))
	for id := range s.snapshots {
		seen[id] = struct{}{}
	}
	for id, events := range s.events {
		if len(events) > 0 {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
