package bbolt

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelfdesk/shelfadmin/storage"
	"github.com/shelfdesk/shelfadmin/storage/storagetest"
	"go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.db")
	s, err := NewRepositoryFromFile(path, nil)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	return s, path
}

func TestBBoltStorage(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()
	storagetest.Run(t, s)
}

func TestBBoltSurvivesReopen(t *testing.T) {
	s, path := newTestStore(t)
	err := s.Batch(func(tx storage.BatchTx) error {
		return tx.Put("token", []byte("abc.def.ghi"))
	})
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewRepositoryFromFile(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get("token")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "abc.def.ghi" {
		t.Errorf("expected persisted token, got %q", got)
	}
}

func TestBBoltGetBeforeAnyWrite(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()

	_, err := s.Get("token")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on fresh db, got %v", err)
	}
}

func TestBBoltCustomBucket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer db.Close()

	a := NewRepository(db, "a")
	b := NewRepository(db, "b")
	if err := a.Batch(func(tx storage.BatchTx) error { return tx.Put("k", []byte("in-a")) }); err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if _, err := b.Get("k"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("buckets should be isolated, got %v", err)
	}
}

func TestBBoltLockedFileFailsFast(t *testing.T) {
	s, path := newTestStore(t)
	defer s.Close()

	start := time.Now()
	_, err := NewRepositoryFromFile(path, &bbolt.Options{Timeout: 50 * time.Millisecond})
	if err == nil {
		t.Fatal("expected second open of a locked db to fail")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("open did not honour timeout")
	}
}
