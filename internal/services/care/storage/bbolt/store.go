// Package bbolt stores patient snapshots in a BoltDB file, one JSON document
// per patient keyed by patient id.
package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
	"github.com/louisbranch/carepaths/internal/services/care/storage"
)

const snapshotBucket = "patient_snapshots"

// Store is a BoltDB-backed storage.SnapshotStore.
type Store struct {
	db *bbolt.DB
}

type snapshotRecord struct {
	State     patient.State `json:"state"`
	LastSeq   uint64        `json:"last_seq"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Open opens the snapshot store at path, creating it if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket)); err != nil {
			return fmt.Errorf("create snapshot bucket: %w", err)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database. It is safe to call on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetSnapshot returns the snapshot of patientID.
func (s *Store) GetSnapshot(ctx context.Context, patientID string) (storage.Snapshot, error) {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return storage.Snapshot{}, err
	}

	var record snapshotRecord
	err = s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := snapshots(tx)
		if err != nil {
			return err
		}
		payload := bucket.Get([]byte(patientID))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &record); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return storage.Snapshot{}, err
	}
	return storage.Snapshot{State: record.State, LastSeq: record.LastSeq, UpdatedAt: record.UpdatedAt}, nil
}

// PutSnapshot replaces the snapshot of the snapshot's patient.
func (s *Store) PutSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	patientID, err := s.check(ctx, snapshot.State.ID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(snapshotRecord{
		State:     snapshot.State,
		LastSeq:   snapshot.LastSeq,
		UpdatedAt: snapshot.UpdatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := snapshots(tx)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(patientID), payload)
	})
}

// DeleteSnapshot removes the snapshot of patientID.
func (s *Store) DeleteSnapshot(ctx context.Context, patientID string) error {
	patientID, err := s.check(ctx, patientID)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := snapshots(tx)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(patientID))
	})
}

// PatientIDs lists the patients that have a snapshot, in key order.
func (s *Store) PatientIDs(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := snapshots(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(key, _ []byte) error {
			ids = append(ids, string(key))
			return nil
		})
	})
	return ids, err
}

func snapshots(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bucket := tx.Bucket([]byte(snapshotBucket))
	if bucket == nil {
		return nil, errors.New("snapshot bucket is missing")
	}
	return bucket, nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("storage is not configured")
	}
	return nil
}

func (s *Store) check(ctx context.Context, patientID string) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return "", storage.ErrPatientIDRequired
	}
	return patientID, nil
}
