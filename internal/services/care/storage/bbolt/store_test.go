package bbolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"

	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
	"github.com/louisbranch/carepaths/internal/services/care/storage"
	"github.com/louisbranch/carepaths/internal/services/care/storage/storagetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SnapshotStore(t *testing.T) {
	storagetest.RunSnapshotStore(t, func(t *testing.T) storage.SnapshotStore { return openTestStore(t) })
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	first, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := first.PutSnapshot(ctx, storage.Snapshot{State: storagetest.SampleState(), LastSeq: 5}); err != nil {
		t.Fatalf("put snapshot: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer second.Close()
	snapshot, err := second.GetSnapshot(ctx, "patient-1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if snapshot.LastSeq != 5 || len(snapshot.State.Paths) != 1 {
		t.Fatalf("snapshot = %+v", snapshot)
	}
}

func TestStore_PatientIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"patient-b", "patient-a"} {
		if err := store.PutSnapshot(ctx, storage.Snapshot{State: patient.NewState(id)}); err != nil {
			t.Fatalf("put snapshot: %v", err)
		}
	}

	ids, err := store.PatientIDs(ctx)
	if err != nil {
		t.Fatalf("patient ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "patient-a" || ids[1] != "patient-b" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestStore_CorruptSnapshot(t *testing.T) {
	store := openTestStore(t)
	if err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(snapshotBucket)).Put([]byte("patient-1"), []byte("{not json"))
	}); err != nil {
		t.Fatalf("seed corrupt snapshot: %v", err)
	}

	_, err := store.GetSnapshot(context.Background(), "patient-1")
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestStore_NilSafe(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if _, err := store.GetSnapshot(context.Background(), "patient-1"); err == nil {
		t.Fatal("expected error for nil store")
	}
}
