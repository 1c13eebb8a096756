package tabula

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema"
)

// Cache is the interface for caching query results.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies the cached result of a query.
type CacheKey struct {
	Table     string
	Operation string
	Hash      uint64 // xxh3 of the SQL text and the arguments
}

// NewCacheKey returns the cache key of q.
func NewCacheKey(q sql.Query) CacheKey {
	h := xxh3.New()
	_, _ = h.WriteString(q.SQL())
	for _, arg := range q.Args() {
		// Type and value, so that 1 and "1" hash differently.
		_, _ = fmt.Fprintf(h, "\x00%T:%v", arg, arg)
	}
	return CacheKey{Table: q.Table(), Operation: q.Op().String(), Hash: h.Sum64()}
}

// String returns the string representation of the cache key. Keys of one
// table share the prefix returned by TablePrefix.
func (k CacheKey) String() string {
	return TablePrefix(k.Table) + k.Operation + ":" + strconv.FormatUint(k.Hash, 16)
}

// TablePrefix returns the prefix of the cache keys of a table.
func TablePrefix(table string) string {
	return table + ":"
}

// encodeRecords encodes records for the cache. JSON values are stored as
// JSON text and times as text with their offset, since msgpack keeps the
// instant only.
func encodeRecords(recs []schema.Record, cols schema.Columns) ([]byte, error) {
	out := make([]map[string]any, len(recs))
	for i, r := range recs {
		m := make(map[string]any, len(r))
		for k, v := range r {
			x, err := cacheValue(cols, k, v)
			if err != nil {
				return nil, err
			}
			m[k] = x
		}
		out[i] = m
	}
	return msgpack.Marshal(out)
}

func cacheValue(cols schema.Columns, name string, v any) (any, error) {
	if c, ok := cols.Get(name); ok && c.IsJSON() && v != nil {
		return json.Marshal(v)
	}
	switch v := v.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case []time.Time:
		s := make([]string, len(v))
		for i, t := range v {
			s[i] = t.Format(time.RFC3339Nano)
		}
		return s, nil
	}
	return v, nil
}

// decodeRecords decodes cached records and normalizes their values again.
func decodeRecords(data []byte, cols schema.Columns, codec Codec) ([]schema.Record, error) {
	var raw []map[string]any
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	recs := make([]schema.Record, len(raw))
	for i, m := range raw {
		r := make(schema.Record, len(m))
		for k, v := range m {
			col, _ := cols.Get(k)
			x, err := codec.Decode(col, v)
			if err != nil {
				return nil, err
			}
			r[k] = x
		}
		recs[i] = r
	}
	return recs, nil
}

// generations counts the invalidations of each table. A result whose table
// was invalidated after it was read must not stay in the cache.
type generations struct {
	mu     sync.Mutex
	all    uint64 // bumped when every table is invalidated
	tables map[string]uint64
}

func (g *generations) load(table string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.all + g.tables[table]
}

func (g *generations) bump(table string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if table == "" {
		g.all++
		return
	}
	if g.tables == nil {
		g.tables = make(map[string]uint64)
	}
	g.tables[table]++
}

// MemoryCache is an in-process Cache. The zero value is not usable; create
// one with NewMemoryCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, nil
	}
	return e.value, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// DeletePrefix implements Cache.
func (m *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// Clear implements Cache.
func (m *MemoryCache) Clear(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
