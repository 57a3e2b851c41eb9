// Package abicache implements the ABI cache (spec §4.2, invariants 1 and 3):
// an LRU map from account name to a parsed ABI definition, evicted by least
// recently accessed, invalidated synchronously on setabi.
//
// The cache is touched only by the consumer goroutine (spec §5), so an
// xsync.Map buys nothing for correctness here — it is kept anyway, the way
// the teacher keeps xsync.Map for every account-keyed lookup table
// (app/indexer/activity/context.go's ChainsDB), so a future multi-consumer
// deployment doesn't require touching this package.
package abicache

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// FieldDef is one field of a struct definition in an ABI.
type FieldDef struct {
	Name string
	Type string
}

// StructDef is one struct definition in an ABI, optionally extending a base
// struct by name (EOS ABIs support single inheritance between structs).
type StructDef struct {
	Name   string
	Base   string
	Fields []FieldDef
}

// AbiDef is a parsed ABI: enough of it to decode action payloads by name.
type AbiDef struct {
	Version string
	Structs []StructDef
	// Actions maps an action name to the struct that describes its payload.
	Actions map[string]string
}

// StructByName returns the struct definition named n, if any.
func (a *AbiDef) StructByName(n string) (StructDef, bool) {
	for _, s := range a.Structs {
		if s.Name == n {
			return s, true
		}
	}
	return StructDef{}, false
}

// entry is one cached ABI, intrusively timestamped for LRU scanning — the Go
// analogue of the original plugin's multi_index_container with by_account
// and by_last_access indices (spec §9 names both an intrusive-timestamp scan
// and a secondary ordered index as acceptable given bounded cache size; this
// picks the former for its smaller footprint).
type entry struct {
	abi          *AbiDef
	lastAccessed time.Time
}

// Cache is the bounded, LRU-evicting ABI cache.
type Cache struct {
	capacity int
	entries  *xsync.MapOf[string, *entry]
}

// New creates a Cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		entries:  xsync.NewMapOf[string, *entry](),
	}
}

// Get returns the cached ABI for account, refreshing its last-accessed time
// on a hit (spec §4.2 step 1).
func (c *Cache) Get(account string) (*AbiDef, bool) {
	e, ok := c.entries.Load(account)
	if !ok {
		return nil, false
	}
	e.lastAccessed = time.Now()
	return e.abi, true
}

// Put inserts or replaces the cached ABI for account, evicting the least
// recently accessed entry first if the cache is at capacity (spec invariant
// 1 and §4.2 step 5).
func (c *Cache) Put(account string, abi *AbiDef) {
	if _, exists := c.entries.Load(account); !exists && c.entries.Size() >= c.capacity {
		c.evictOldest()
	}
	c.entries.Store(account, &entry{abi: abi, lastAccessed: time.Now()})
}

// Invalidate removes account's cached ABI immediately, so the next lookup is
// forced to re-fetch (spec invariant 3, triggered by setabi).
func (c *Cache) Invalidate(account string) {
	c.entries.Delete(account)
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Size()
}

// evictOldest removes the entry with the smallest lastAccessed, scanning the
// whole (bounded) map — acceptable given the cache's capped size (spec §9).
func (c *Cache) evictOldest() {
	var (
		oldestKey   string
		oldestTime  time.Time
		found       bool
	)
	c.entries.Range(func(k string, v *entry) bool {
		if !found || v.lastAccessed.Before(oldestTime) {
			oldestKey = k
			oldestTime = v.lastAccessed
			found = true
		}
		return true
	})
	if found {
		c.entries.Delete(oldestKey)
	}
}
