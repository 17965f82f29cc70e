package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/querycache/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketStates = []byte("states")
	bucketMeta   = []byte("meta")
)

const dbFileName = "qcache.db"

// StateStore implements domain.StateStore using BoltDB.
type StateStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte

	now func() time.Time
}

var _ domain.StateStore = (*StateStore)(nil)

// NewStateStore opens the snapshot database for a site under baseCacheDir.
// An empty baseCacheDir keeps everything in memory.
func NewStateStore(baseCacheDir, site string) (*StateStore, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &StateStore{cache: make(map[string][]byte), now: time.Now}, nil
	}

	dir := baseCacheDir
	if site != "" {
		dir = filepath.Join(baseCacheDir, hashSite(site))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, dbFileName)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketStates, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &StateStore{db: db, cache: make(map[string][]byte), now: time.Now}, nil
}

func hashSite(site string) string {
	normalized := strings.TrimRight(strings.ToLower(site), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *StateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *StateStore) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *StateStore) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *StateStore) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucket); b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

func (s *StateStore) deletePrefix(bucket []byte, prefix string) {
	s.mu.Lock()
	cachePrefix := string(bucket) + ":" + prefix
	for k := range s.cache {
		if strings.HasPrefix(k, cachePrefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	// Keys are collected first; deleting under a live cursor skips entries.
	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		var doomed [][]byte
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Snapshots (hierarchical name: site:{site}:{entity}) ===

// LoadState returns the snapshot saved under name.
func (s *StateStore) LoadState(name string) (domain.State, bool) {
	var state domain.State
	if !s.get(bucketStates, name, &state) {
		return domain.State{}, false
	}
	if state.Items == nil {
		state.Items = map[string]domain.Item{}
	}
	if state.Queries == nil {
		state.Queries = map[string]domain.QueryResult{}
	}
	return state, true
}

// SaveState stores a snapshot and stamps its save time.
func (s *StateStore) SaveState(name string, state domain.State) error {
	if err := s.set(bucketStates, name, state); err != nil {
		return fmt.Errorf("failed to save state %q: %w", name, err)
	}
	// Save timestamp separately for freshness checks
	return s.set(bucketMeta, name, s.now().Unix())
}

// SavedAt returns the unix time name was last saved, or 0.
func (s *StateStore) SavedAt(name string) int64 {
	var ts int64
	if !s.get(bucketMeta, name, &ts) {
		return 0
	}
	return ts
}

// IsFresh reports whether name was saved within maxAge.
func (s *StateStore) IsFresh(name string, maxAge time.Duration) bool {
	ts := s.SavedAt(name)
	if ts == 0 {
		return false
	}
	return s.now().Sub(time.Unix(ts, 0)) <= maxAge
}

// === Cascade Invalidation ===

func (s *StateStore) InvalidateState(name string) {
	s.delete(bucketStates, name)
	s.delete(bucketMeta, name)
}

// InvalidatePrefix wipes every snapshot whose name starts with prefix.
func (s *StateStore) InvalidatePrefix(prefix string) {
	s.deletePrefix(bucketStates, prefix)
	s.deletePrefix(bucketMeta, prefix)
}

func (s *StateStore) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	// Recreating the buckets drops every key at once.
	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketStates, bucketMeta} {
			if tx.Bucket(bucket) != nil {
				if err := tx.DeleteBucket(bucket); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

// StateName builds the snapshot name for an entity of a site.
func StateName(site, entity string) string {
	return "site:" + site + ":" + entity
}
