package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"skydesk/internal/model/convo"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrSessionNotFound   = errors.New("session not found")
	ErrVersionConflict   = errors.New("session version conflict")
)

// Store keeps sessions in memory behind a versioned commit. Readers get
// deep copies; writers commit a whole snapshot which is accepted only when
// its version still matches the stored one.
type Store struct {
	mu              sync.RWMutex
	sessions        map[string]convo.Session
	turnWindow      int
	sentimentWindow int
}

// NewStore bootstraps the in-memory session store.
func NewStore(turnWindow, sentimentWindow int) *Store {
	if turnWindow < 1 {
		turnWindow = 1
	}
	if sentimentWindow < 2 {
		sentimentWindow = 2
	}
	return &Store{
		sessions:        make(map[string]convo.Session),
		turnWindow:      turnWindow,
		sentimentWindow: sentimentWindow,
	}
}

// GetOrCreate returns a snapshot of the session, creating it first if it
// does not exist yet.
func (s *Store) GetOrCreate(_ context.Context, sessionID, customerID, tenantID string, channel convo.Channel) (convo.Session, error) {
	if sessionID == "" {
		return convo.Session{}, ErrSessionIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[sessionID]; ok {
		return existing.Clone(), nil
	}

	now := time.Now().UTC()
	created := convo.Session{
		ID:         sessionID,
		CustomerID: customerID,
		TenantID:   tenantID,
		Channel:    channel,
		Stage:      convo.StageNew,
		Entities:   make(map[string]string),
		NextSeq:    1,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.sessions[sessionID] = created
	return created.Clone(), nil
}

// Get returns a snapshot of an existing session.
func (s *Store) Get(_ context.Context, sessionID string) (convo.Session, error) {
	if sessionID == "" {
		return convo.Session{}, ErrSessionIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.sessions[sessionID]
	if !ok {
		return convo.Session{}, ErrSessionNotFound
	}
	return existing.Clone(), nil
}

// Commit replaces the stored session with the snapshot if the snapshot's
// version matches the stored version, then bumps the version and trims the
// bounded windows. The committed state is returned.
func (s *Store) Commit(_ context.Context, snapshot convo.Session) (convo.Session, error) {
	if snapshot.ID == "" {
		return convo.Session{}, ErrSessionIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[snapshot.ID]
	if !ok {
		return convo.Session{}, ErrSessionNotFound
	}
	if stored.Version != snapshot.Version {
		return convo.Session{}, ErrVersionConflict
	}

	next := snapshot.Clone()
	next.Version = stored.Version + 1
	next.UpdatedAt = time.Now().UTC()
	if len(next.Turns) > s.turnWindow {
		next.Turns = next.Turns[len(next.Turns)-s.turnWindow:]
	}
	if len(next.SentimentTrend) > s.sentimentWindow {
		next.SentimentTrend = next.SentimentTrend[len(next.SentimentTrend)-s.sentimentWindow:]
	}

	s.sessions[snapshot.ID] = next
	return next.Clone(), nil
}

// List returns snapshots of every live session. Used by the disruption
// monitor to find sessions referencing a watched flight.
func (s *Store) List(_ context.Context) []convo.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]convo.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	return out
}
