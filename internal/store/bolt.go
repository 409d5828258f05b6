package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const runsBucket = "runs"

// BoltStore persists runs in a local bbolt file, one JSON value per run keyed
// by run ID. It backs the CLI's run history.
type BoltStore struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

func NewBoltStore(dbPath string) (*BoltStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("bolt store needs a path")
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt store at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	return &BoltStore{db: db, path: dbPath, now: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) CreateRun(_ context.Context, run *Run) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))
		if run.ID != uuid.Nil && bucket.Get(run.ID[:]) != nil {
			return fmt.Errorf("run %s already exists", run.ID)
		}
		prepareNew(run, s.now().UTC())
		return putRun(bucket, run)
	})
}

func (s *BoltStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	var run *Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get(id[:])
		if data == nil {
			return nil
		}
		run = &Run{}
		return json.Unmarshal(data, run)
	})
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	return run, nil
}

func (s *BoltStore) ListRuns(_ context.Context, filter RunFilter) ([]*Run, error) {
	runs, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	return selectRuns(runs, filter), nil
}

func (s *BoltStore) GetPendingRuns(_ context.Context) ([]*Run, error) {
	runs, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	return pendingRuns(runs), nil
}

func (s *BoltStore) UpdateRun(_ context.Context, run *Run) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))
		if bucket.Get(run.ID[:]) == nil {
			return fmt.Errorf("update run %s: %w", run.ID, ErrRunNotFound)
		}
		run.UpdatedAt = s.now().UTC()
		return putRun(bucket, run)
	})
}

func (s *BoltStore) GetStats(_ context.Context) (*RunStats, error) {
	runs, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	return computeStats(runs), nil
}

func (s *BoltStore) loadAll() ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(k, v []byte) error {
			run := &Run{}
			if err := json.Unmarshal(v, run); err != nil {
				return fmt.Errorf("decode run %x: %w", k, err)
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func putRun(bucket *bbolt.Bucket, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	return bucket.Put(run.ID[:], data)
}
