// Package storage persists scripts and their execution records in a
// local bbolt database.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/browserscript/browserscript/models"
	bolt "go.etcd.io/bbolt"
)

var (
	scriptsBucket          = []byte("scripts")
	scriptExecutionsBucket = []byte("script_executions")
)

type BoltDB struct {
	db *bolt.DB
}

func NewBoltDB(dbPath string) (*BoltDB, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(scriptsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(scriptExecutionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}

// SaveScript stores a script, stamping timestamps.
func (b *BoltDB) SaveScript(script *models.Script) error {
	script.UpdatedAt = time.Now()
	if script.CreatedAt.IsZero() {
		script.CreatedAt = time.Now()
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(scriptsBucket)
		data, err := script.ToJSON()
		if err != nil {
			return err
		}
		return bucket.Put([]byte(script.ID), data)
	})
}

// GetScript loads one script by id.
func (b *BoltDB) GetScript(id string) (*models.Script, error) {
	var script models.Script
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(scriptsBucket)
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("script not found: %s", id)
		}
		return script.FromJSON(data)
	})
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// ListScripts returns all scripts, newest first.
func (b *BoltDB) ListScripts() ([]*models.Script, error) {
	var scripts []*models.Script
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(scriptsBucket)
		return bucket.ForEach(func(k, v []byte) error {
			var script models.Script
			if err := script.FromJSON(v); err != nil {
				return err
			}
			scripts = append(scripts, &script)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].CreatedAt.After(scripts[j].CreatedAt)
	})

	return scripts, nil
}

// DeleteScript removes a script together with its execution records.
func (b *BoltDB) DeleteScript(id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(scriptsBucket)
		if err := bucket.Delete([]byte(id)); err != nil {
			return err
		}

		execBucket := tx.Bucket(scriptExecutionsBucket)
		var keysToDelete [][]byte
		err := execBucket.ForEach(func(k, v []byte) error {
			var execution models.ScriptExecution
			if err := json.Unmarshal(v, &execution); err != nil {
				return nil // skip invalid records
			}
			if execution.ScriptID == id {
				keysToDelete = append(keysToDelete, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range keysToDelete {
			if err := execBucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveExecution stores a script execution record.
func (b *BoltDB) SaveExecution(execution *models.ScriptExecution) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(scriptExecutionsBucket)
		data, err := json.Marshal(execution)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(execution.ID), data)
	})
}

// GetExecution loads one execution record by id.
func (b *BoltDB) GetExecution(id string) (*models.ScriptExecution, error) {
	var execution models.ScriptExecution
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(scriptExecutionsBucket)
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("script execution not found: %s", id)
		}
		return json.Unmarshal(data, &execution)
	})
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

// ListExecutions returns execution records, newest first. An empty
// scriptID returns every record.
func (b *BoltDB) ListExecutions(scriptID string) ([]*models.ScriptExecution, error) {
	var executions []*models.ScriptExecution
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(scriptExecutionsBucket)
		return bucket.ForEach(func(k, v []byte) error {
			var execution models.ScriptExecution
			if err := json.Unmarshal(v, &execution); err != nil {
				return nil // skip invalid records
			}
			if scriptID == "" || execution.ScriptID == scriptID {
				executions = append(executions, &execution)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}
