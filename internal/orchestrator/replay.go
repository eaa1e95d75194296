package orchestrator

import (
	"sync"

	"skydesk/internal/model/convo"
)

// replayCache keeps recent turn responses per session so transport
// redeliveries get the exact bytes of the original response back.
type replayCache struct {
	mu      sync.Mutex
	perSess map[string][]replayEntry
	limit   int
}

type replayEntry struct {
	seq  int64
	text string
	resp convo.TurnResponse
}

func newReplayCache(limit int) *replayCache {
	if limit < 1 {
		limit = 1
	}
	return &replayCache{
		perSess: make(map[string][]replayEntry),
		limit:   limit,
	}
}

func (c *replayCache) lookup(sessionID string, seq int64) (replayEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.perSess[sessionID] {
		if entry.seq == seq {
			return entry, true
		}
	}
	return replayEntry{}, false
}

func (c *replayCache) put(sessionID string, seq int64, text string, resp convo.TurnResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := append(c.perSess[sessionID], replayEntry{seq: seq, text: text, resp: resp})
	if len(entries) > c.limit {
		entries = entries[len(entries)-c.limit:]
	}
	c.perSess[sessionID] = entries
}

func (c *replayCache) drop(sessionID string) {
	c.mu.Lock()
	delete(c.perSess, sessionID)
	c.mu.Unlock()
}
