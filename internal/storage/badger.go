package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// Compile-time check that BadgerStore implements ActivityStore.
var _ ActivityStore = (*BadgerStore)(nil)

// BadgerStore provides persistent storage using BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	stopCh chan struct{}
	once   sync.Once
}

// Key prefixes. The farmer index maps farmers/<farmer>/<id> to nothing.
const (
	prefixActivities = "activities/"
	prefixFarmers    = "farmers/"
)

// NewBadgerStore opens (or creates) the activity database under dataDir.
func NewBadgerStore(dataDir string, logger zerolog.Logger) (*BadgerStore, error) {
	dbPath := filepath.Join(dataDir, "krishi.db")

	opts := badger.DefaultOptions(dbPath)
	opts.Logger = badgerLogger{logger.With().Str("component", "storage").Logger()}
	opts.SyncWrites = true
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		stopCh: make(chan struct{}),
	}
	go s.runGC()
	return s, nil
}

// Close closes the database and stops background goroutines.
func (s *BadgerStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stopCh)
		err = s.db.Close()
	})
	return err
}

// runGC runs periodic value log garbage collection.
func (s *BadgerStore) runGC() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			for s.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// CreateActivity stores a new activity.
func (s *BadgerStore) CreateActivity(activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		key := activityKey(activity.ID)

		_, err := txn.Get(key)
		if err == nil {
			return models.ErrActivityAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(activity)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(farmerKey(activity.FarmerID, activity.ID), nil)
	})
}

// GetActivity retrieves an activity by ID.
func (s *BadgerStore) GetActivity(id string) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var activity *models.Activity
	err := s.db.View(func(txn *badger.Txn) error {
		a, err := getActivity(txn, id)
		activity = a
		return err
	})
	return activity, err
}

// DeleteActivity removes an activity and its index entry.
func (s *BadgerStore) DeleteActivity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		a, err := getActivity(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(activityKey(id)); err != nil {
			return err
		}
		return txn.Delete(farmerKey(a.FarmerID, id))
	})
}

// ListActivities returns activities newest first with the total count.
func (s *BadgerStore) ListActivities(farmerID string, offset, limit int) ([]*models.Activity, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var activities []*models.Activity
	err := s.db.View(func(txn *badger.Txn) error {
		if farmerID == "" {
			return iterate(txn, []byte(prefixActivities), false, func(item *badger.Item) error {
				return item.Value(func(val []byte) error {
					var a models.Activity
					if err := json.Unmarshal(val, &a); err != nil {
						return err
					}
					activities = append(activities, &a)
					return nil
				})
			})
		}

		prefix := []byte(prefixFarmers + farmerID + "/")
		return iterate(txn, prefix, true, func(item *badger.Item) error {
			id := string(item.Key()[len(prefix):])
			if strings.Contains(id, "/") {
				// Belongs to a farmer whose ID extends this one.
				return nil
			}
			a, err := getActivity(txn, id)
			if err != nil {
				return err
			}
			activities = append(activities, a)
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}

	sortNewestFirst(activities)
	return page(activities, offset, limit), len(activities), nil
}

func iterate(txn *badger.Txn, prefix []byte, keysOnly bool, fn func(*badger.Item) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = !keysOnly

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := fn(it.Item()); err != nil {
			return err
		}
	}
	return nil
}

func getActivity(txn *badger.Txn, id string) (*models.Activity, error) {
	item, err := txn.Get(activityKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, models.ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}

	var activity models.Activity
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &activity)
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func activityKey(id string) []byte {
	return []byte(prefixActivities + id)
}

func farmerKey(farmerID, id string) []byte {
	return []byte(prefixFarmers + farmerID + "/" + id)
}

// badgerLogger routes badger's logs through zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}
