package reference

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrReferenceNotFound = errors.New("reference not found")

// Reference is a durable case identifier a customer can quote on any
// channel to resume where they left off.
type Reference struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	CustomerID string    `json:"customerId"`
	Kind       string    `json:"kind"`
	Summary    string    `json:"summary"`
	Events     []Event   `json:"events"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Event is one timestamped entry in a reference's history.
type Event struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

// Store keeps case references in memory.
type Store struct {
	mu         sync.RWMutex
	references map[string]Reference
	now        func() time.Time
}

// NewStore bootstraps an empty reference store.
func NewStore() *Store {
	return &Store{
		references: make(map[string]Reference),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create mints a new SUP reference for a session.
func (s *Store) Create(_ context.Context, sessionID, customerID, kind, summary string) Reference {
	now := s.now()
	ref := Reference{
		ID:         newID(),
		SessionID:  sessionID,
		CustomerID: customerID,
		Kind:       kind,
		Summary:    summary,
		Events:     []Event{{At: now, Note: "reference created"}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.references[ref.ID] = ref
	s.mu.Unlock()
	return ref
}

// AppendEvent adds a history entry to an existing reference.
func (s *Store) AppendEvent(_ context.Context, id, note string) (Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.references[normalizeID(id)]
	if !ok {
		return Reference{}, ErrReferenceNotFound
	}

	now := s.now()
	ref.Events = append(ref.Events, Event{At: now, Note: note})
	ref.UpdatedAt = now
	s.references[ref.ID] = ref
	return cloneReference(ref), nil
}

// Get returns one reference by its SUP identifier.
func (s *Store) Get(_ context.Context, id string) (Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.references[normalizeID(id)]
	if !ok {
		return Reference{}, ErrReferenceNotFound
	}
	return cloneReference(ref), nil
}

// ByCustomer lists a customer's references, newest first.
func (s *Store) ByCustomer(_ context.Context, customerID string) []Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Reference, 0, 4)
	for _, ref := range s.references {
		if ref.CustomerID == customerID {
			out = append(out, cloneReference(ref))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// BySession lists references minted for one session, newest first.
func (s *Store) BySession(_ context.Context, sessionID string) []Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Reference, 0, 2)
	for _, ref := range s.references {
		if ref.SessionID == sessionID {
			out = append(out, cloneReference(ref))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// IsReferenceID reports whether a token looks like a SUP reference.
func IsReferenceID(token string) bool {
	token = normalizeID(token)
	if !strings.HasPrefix(token, "SUP-") || len(token) != 12 {
		return false
	}
	for _, r := range token[4:] {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func newID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "SUP-" + raw[:8]
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func cloneReference(ref Reference) Reference {
	events := make([]Event, len(ref.Events))
	copy(events, ref.Events)
	ref.Events = events
	return ref
}
