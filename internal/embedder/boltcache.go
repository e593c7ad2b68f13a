package embedder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var embeddingsBucket = []byte("embeddings")

// BoltCache persists embeddings in a bbolt file so restarts keep warm
// entries. Each value is an 8-byte expiry (unix nanoseconds) followed by
// the little-endian float32 components.
type BoltCache struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
}

// OpenBoltCache opens or creates the cache file at path.
func OpenBoltCache(path string, ttl time.Duration) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("embedder: create cache dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("embedder: open bolt cache %q: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(embeddingsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("embedder: create bucket: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &BoltCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the stored vector if present and not expired. Read errors are
// treated as misses.
func (b *BoltCache) Get(key string) ([]float32, bool) {
	var vec []float32
	_ = b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(embeddingsBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		v, expires, err := decodeVector(raw)
		if err != nil || b.now().After(expires) {
			return nil
		}
		vec = v
		return nil
	})
	return vec, vec != nil
}

// Put stores vector under key. Write failures are dropped; the cache only
// affects latency.
func (b *BoltCache) Put(key string, vector []float32) {
	raw := encodeVector(vector, b.now().Add(b.ttl))
	_ = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(embeddingsBucket).Put([]byte(key), raw)
	})
}

// Close closes the bbolt file.
func (b *BoltCache) Close() error {
	return b.db.Close()
}

func encodeVector(v []float32, expires time.Time) []byte {
	buf := make([]byte, 8+4*len(v))
	binary.LittleEndian.PutUint64(buf, uint64(expires.UnixNano()))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[8+4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, time.Time, error) {
	if len(raw) < 8 || (len(raw)-8)%4 != 0 {
		return nil, time.Time{}, errors.New("embedder: corrupt cache entry")
	}
	expires := time.Unix(0, int64(binary.LittleEndian.Uint64(raw)))
	v := make([]float32, (len(raw)-8)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[8+4*i:]))
	}
	return v, expires, nil
}
