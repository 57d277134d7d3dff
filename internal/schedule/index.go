package schedule

import "github.com/allynet/zet-live/internal/watchslot"

// Index is the read-mostly store holding at most one current Snapshot
// (spec §4.3). Publication is a single pointer swap; readers take a
// reference to the current Snapshot without blocking a concurrent
// publish for long. WaitForUpdate wakes on the next successful
// publication only — no backlog of historical events.
type Index struct {
	slot *watchslot.Slot[*Snapshot]
}

// NewIndex returns an empty index with no published snapshot.
func NewIndex() *Index {
	return &Index{slot: watchslot.New[*Snapshot]()}
}

// Current returns a handle to the latest published snapshot, or nil if
// none has been published yet.
func (idx *Index) Current() *Snapshot {
	return idx.slot.Load()
}

// Publish atomically replaces the current snapshot and wakes every
// current waiter.
func (idx *Index) Publish(s *Snapshot) {
	idx.slot.Store(s)
}

// WaitForUpdate blocks until the next successful Publish call, then
// returns the snapshot that publication installed.
func (idx *Index) WaitForUpdate() *Snapshot {
	return idx.slot.Wait()
}
