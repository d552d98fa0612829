package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/recipeui/fetchbridge/internal/domain"
	"github.com/recipeui/fetchbridge/internal/logger"
	bolt "go.etcd.io/bbolt"
)

var (
	exchangeBucket = []byte("exchanges")
	// expiryBucket indexes exchange ids by expiry: 8-byte big-endian unix
	// seconds followed by the id, so a sweep only walks expired keys.
	expiryBucket = []byte("expiry")
)

// boltEntry is the value stored under an exchange id.
type boltEntry struct {
	ExpiresAt int64           `json:"expires_at"`
	Exchange  domain.Exchange `json:"exchange"`
}

func (e boltEntry) expired(now time.Time) bool { return e.ExpiresAt <= now.Unix() }

// boltStore keeps exchanges in a local bbolt file and sweeps expired ones
// in the background every CleanupInterval.
type boltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
	log logger.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func openBolt(path string, opts Options) (Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{exchangeBucket, expiryBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	store := &boltStore{
		db:   db,
		ttl:  opts.TTL,
		now:  time.Now,
		log:  logger.Ensure(opts.Log),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go store.sweepLoop(opts.CleanupInterval)
	return store, nil
}

// Close stops the sweeper and closes the database.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	var err error
	b.closeOnce.Do(func() {
		close(b.stop)
		<-b.done
		err = b.db.Close()
	})
	return err
}

// Put records ex until the TTL elapses. Re-recording an id replaces the
// entry and its expiry.
func (b *boltStore) Put(_ context.Context, ex domain.Exchange) error {
	if ex.ID == "" {
		return fmt.Errorf("exchange id is empty")
	}

	entry := boltEntry{ExpiresAt: b.now().Add(b.ttl).Unix(), Exchange: ex}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal exchange: %w", err)
	}

	id := []byte(ex.ID)
	return b.db.Update(func(tx *bolt.Tx) error {
		exchanges, index := tx.Bucket(exchangeBucket), tx.Bucket(expiryBucket)
		if prev := exchanges.Get(id); prev != nil {
			var old boltEntry
			if json.Unmarshal(prev, &old) == nil {
				if err := index.Delete(expiryKey(old.ExpiresAt, ex.ID)); err != nil {
					return err
				}
			}
		}
		if err := exchanges.Put(id, raw); err != nil {
			return err
		}
		return index.Put(expiryKey(entry.ExpiresAt, ex.ID), nil)
	})
}

// Get returns the exchange recorded under id. Expired entries are reported
// as missing until the sweeper removes them.
func (b *boltStore) Get(_ context.Context, id string) (domain.Exchange, bool, error) {
	var entry boltEntry
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(exchangeBucket).Get([]byte(id))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decode exchange %q: %w", id, err)
		}
		found = !entry.expired(b.now())
		return nil
	})
	if err != nil || !found {
		return domain.Exchange{}, false, err
	}
	return entry.Exchange, true, nil
}

func (b *boltStore) sweepLoop(every time.Duration) {
	defer close(b.done)
	if every <= 0 {
		every = defaultCleanupInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			removed, err := b.sweep(b.now())
			if err != nil {
				b.log.WarnObj("journal sweep failed", "journal_error", err.Error())
				continue
			}
			if removed > 0 {
				b.log.DebugObj("journal sweep", "journal_removed", removed)
			}
		}
	}
}

// sweep deletes every exchange whose expiry is at or before now.
func (b *boltStore) sweep(now time.Time) (int, error) {
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		exchanges, index := tx.Bucket(exchangeBucket), tx.Bucket(expiryBucket)

		var expired [][]byte
		c := index.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) < 8 || int64(binary.BigEndian.Uint64(k[:8])) > now.Unix() {
				break
			}
			expired = append(expired, append([]byte(nil), k...))
		}

		for _, k := range expired {
			if err := exchanges.Delete(k[8:]); err != nil {
				return err
			}
			if err := index.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func expiryKey(expiresAt int64, id string) []byte {
	k := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(k, uint64(expiresAt))
	return append(k, id...)
}

// count reports stored exchanges and index entries, expired or not.
func (b *boltStore) count() (exchanges, indexed int, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		exchanges = tx.Bucket(exchangeBucket).Stats().KeyN
		indexed = tx.Bucket(expiryBucket).Stats().KeyN
		return nil
	})
	return exchanges, indexed, err
}
