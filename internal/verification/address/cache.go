package address

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/pkg/logger"
)

// Source is a backing store for address rules
type Source interface {
	// ModTime reports when the rule set last changed
	ModTime(ctx context.Context) (time.Time, error)
	// Load returns every rule in priority order
	Load(ctx context.Context) ([]domain.AddressRule, error)
}

// Snapshot is an immutable, fully loaded rule table
type Snapshot struct {
	ModTime time.Time
	Rules   []Rule
	// degraded marks the empty table stored after a failed load
	degraded bool
}

// Match looks text up in the snapshot. A nil snapshot never matches.
func (s *Snapshot) Match(text string) (string, bool) {
	if s == nil {
		return "", false
	}
	return Match(text, s.Rules)
}

// Len returns the number of rules in the snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rules)
}

// ReloadHook is notified after every reload attempt
type ReloadHook func(err error, rules int)

// Cache holds the current Snapshot and swaps it atomically when the source
// changes. Concurrent refreshes may race; the last store wins and readers
// always see a complete table.
type Cache struct {
	source  Source
	current atomic.Pointer[Snapshot]
	log     *logger.Logger
	hook    ReloadHook
}

// NewCache creates a cache over source. A nil source yields a permanently
// empty table.
func NewCache(source Source, log *logger.Logger) *Cache {
	c := &Cache{
		source: source,
		log:    log.WithComponent("address_cache"),
	}
	c.current.Store(&Snapshot{})
	return c
}

// OnReload registers a hook for reload outcomes
func (c *Cache) OnReload(hook ReloadHook) {
	c.hook = hook
}

// Snapshot returns the current table without checking the source
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// RefreshIfStale reloads the table when the source modification time differs
// from the loaded one and returns the table to use. Any failure degrades to an
// empty table with a zero modification time, so the next call retries.
func (c *Cache) RefreshIfStale(ctx context.Context) *Snapshot {
	cur := c.current.Load()
	if c.source == nil {
		return cur
	}

	mod, err := c.source.ModTime(ctx)
	if err != nil {
		return c.degrade(cur, err)
	}
	if !cur.ModTime.IsZero() && cur.ModTime.Equal(mod) {
		return cur
	}

	rules, err := c.source.Load(ctx)
	if err != nil {
		return c.degrade(cur, err)
	}

	next := &Snapshot{ModTime: mod, Rules: Compile(rules)}
	c.current.Store(next)
	c.notify(nil, next.Len())

	c.log.Info().
		Time("mod_time", mod).
		Int("rules", next.Len()).
		Msg("Address rules reloaded")

	return next
}

// Invalidate forgets the loaded modification time so the next
// RefreshIfStale reloads. The current rules stay in use until then.
func (c *Cache) Invalidate() {
	cur := c.current.Load()
	c.current.Store(&Snapshot{Rules: cur.Rules})
}

func (c *Cache) degrade(cur *Snapshot, err error) *Snapshot {
	c.notify(err, 0)
	if cur.degraded {
		c.log.Debug().Err(err).Msg("Address rules still unavailable")
		return cur
	}

	c.log.Warn().Err(err).Msg("Address rules unavailable, using empty table")

	empty := &Snapshot{degraded: true}
	c.current.Store(empty)
	return empty
}

func (c *Cache) notify(err error, rules int) {
	if c.hook != nil {
		c.hook(err, rules)
	}
}
