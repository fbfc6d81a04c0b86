package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/quayside/chandler/pkg/types"
)

// ErrNotFound is wrapped by every lookup miss so callers can distinguish
// absence from storage failure with errors.Is.
var ErrNotFound = errors.New("record not found")

var (
	// Bucket names
	bucketModules = []byte("modules")
	bucketBackups = []byte("backups")
	bucketSites   = []byte("sites")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(stateDir string) (*BoltStore, error) {
	dbPath := filepath.Join(stateDir, "chandler.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketModules,
			bucketBackups,
			bucketSites,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Module operations
func (s *BoltStore) SaveModule(record *types.ModuleRecord) error {
	if record.Name == "" {
		return fmt.Errorf("module record requires a name")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.Name), data)
	})
}

func (s *BoltStore) GetModule(name string) (*types.ModuleRecord, error) {
	var record types.ModuleRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		data := b.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("module %s: %w", name, ErrNotFound)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *BoltStore) ListModules() ([]*types.ModuleRecord, error) {
	var records []*types.ModuleRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		return b.ForEach(func(k, v []byte) error {
			var record types.ModuleRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	return records, err
}

func (s *BoltStore) DeleteModule(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		return b.Delete([]byte(name))
	})
}

// Backup operations
func (s *BoltStore) SaveBackup(record *types.BackupRecord) error {
	if record.ID == "" {
		return fmt.Errorf("backup record requires an id")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBackups)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.ID), data)
	})
}

func (s *BoltStore) GetBackup(id string) (*types.BackupRecord, error) {
	var record types.BackupRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBackups)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("backup %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListBackups returns all backup records, newest first
func (s *BoltStore) ListBackups() ([]*types.BackupRecord, error) {
	var records []*types.BackupRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBackups)
		return b.ForEach(func(k, v []byte) error {
			var record types.BackupRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (s *BoltStore) ListBackupsByTarget(target string) ([]*types.BackupRecord, error) {
	records, err := s.ListBackups()
	if err != nil {
		return nil, err
	}

	var filtered []*types.BackupRecord
	for _, record := range records {
		if record.Target == target {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

func (s *BoltStore) DeleteBackup(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBackups)
		return b.Delete([]byte(id))
	})
}

// Site operations
func (s *BoltStore) SaveSite(record *types.SiteRecord) error {
	if record.Domain == "" {
		return fmt.Errorf("site record requires a domain")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.Domain), data)
	})
}

func (s *BoltStore) GetSite(domain string) (*types.SiteRecord, error) {
	var record types.SiteRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		data := b.Get([]byte(domain))
		if data == nil {
			return fmt.Errorf("site %s: %w", domain, ErrNotFound)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *BoltStore) ListSites() ([]*types.SiteRecord, error) {
	var records []*types.SiteRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		return b.ForEach(func(k, v []byte) error {
			var record types.SiteRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	return records, err
}

func (s *BoltStore) DeleteSite(domain string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		return b.Delete([]byte(domain))
	})
}
