package cache

import (
	"sync"
	"time"

	"meetsync/internal/model"
)

// MeetingCache is the process-local cache of active meetings. Entries are
// evicted explicitly when a meeting deactivates; the TTL sweep covers
// meetings that were abandoned without ever being ended.
//
// Meetings are copied on the way in and out, so callers never share slices
// with the cached entry and mutations stay confined to the registry's
// per-meeting critical section.
type MeetingCache interface {
	Get(meetingID string) *model.Meeting
	Set(meetingID string, meeting *model.Meeting)
	Delete(meetingID string)
	Len() int
	Stop()
}

type meetingCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	meeting   *model.Meeting
	expiresAt time.Time
}

// NewMeetingCache creates a meeting cache with the given TTL and starts
// the expiry sweeper.
func NewMeetingCache(ttl time.Duration) MeetingCache {
	c := &meetingCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *meetingCache) Get(meetingID string) *model.Meeting {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[meetingID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.meeting.Clone()
}

func (c *meetingCache) Set(meetingID string, meeting *model.Meeting) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[meetingID] = &cacheEntry{
		meeting:   meeting.Clone(),
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *meetingCache) Delete(meetingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, meetingID)
}

func (c *meetingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Stop terminates the sweeper goroutine.
func (c *meetingCache) Stop() {
	c.once.Do(func() {
		close(c.stop)
	})
}

func (c *meetingCache) sweep() {
	ticker := time.NewTicker(c.ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.mu.Lock()
			for id, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, id)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}
