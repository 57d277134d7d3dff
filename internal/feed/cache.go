package feed

import "github.com/allynet/zet-live/internal/watchslot"

// Cache is the Feed Cache (spec §4.4, C4): structurally identical to
// the schedule Index but single-entity — it holds the latest decoded
// FeedSnapshot and wakes waiters on every new publication.
type Cache struct {
	slot *watchslot.Slot[*Snapshot]
}

// NewCache returns an empty cache with no published feed.
func NewCache() *Cache {
	return &Cache{slot: watchslot.New[*Snapshot]()}
}

// Current returns the latest published feed snapshot, or nil if none
// has been published yet.
func (c *Cache) Current() *Snapshot {
	return c.slot.Load()
}

// Publish installs a new snapshot and wakes every current waiter.
func (c *Cache) Publish(s *Snapshot) {
	c.slot.Store(s)
}

// WaitForFeedUpdate blocks until the next publication and returns it.
func (c *Cache) WaitForFeedUpdate() *Snapshot {
	return c.slot.Wait()
}
