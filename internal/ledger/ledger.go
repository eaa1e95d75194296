package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrCommitmentNotFound = errors.New("commitment not found")

// Status is the lifecycle position of a commitment. Overdue is never
// stored; it is derived from the due time at read time.
type Status string

const (
	StatusActive  Status = "active"
	StatusReview  Status = "review"
	StatusDone    Status = "done"
	StatusOverdue Status = "overdue"
)

// Commitment is one promise the system made to a customer, with a deadline
// it can be held to.
type Commitment struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	CustomerID string    `json:"customerId"`
	Title      string    `json:"title"`
	Detail     string    `json:"detail"`
	Status     Status    `json:"status"`
	DueAt      time.Time `json:"dueAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Ledger records commitments in memory.
type Ledger struct {
	mu          sync.RWMutex
	commitments map[string]Commitment
	now         func() time.Time
}

// New bootstraps an empty ledger.
func New() *Ledger {
	return &Ledger{
		commitments: make(map[string]Commitment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Record adds a commitment. A commitment with the same session and title
// that is not done yet is refreshed in place rather than duplicated, so a
// retried promise never shows up twice.
func (l *Ledger) Record(_ context.Context, sessionID, customerID, title, detail string, dueAt time.Time) Commitment {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := dedupeKey(sessionID, title)
	for id, existing := range l.commitments {
		if existing.Status != StatusDone && dedupeKey(existing.SessionID, existing.Title) == key {
			existing.Detail = detail
			existing.DueAt = dueAt
			existing.Status = StatusActive
			existing.UpdatedAt = now
			l.commitments[id] = existing
			return l.derived(existing)
		}
	}

	commitment := Commitment{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		CustomerID: customerID,
		Title:      title,
		Detail:     detail,
		Status:     StatusActive,
		DueAt:      dueAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	l.commitments[commitment.ID] = commitment
	return l.derived(commitment)
}

// Resolve moves a commitment to the given terminal or review status.
func (l *Ledger) Resolve(_ context.Context, id string, status Status) (Commitment, error) {
	if status == StatusOverdue {
		// Overdue is derived, not assignable.
		status = StatusActive
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, ok := l.commitments[id]
	if !ok {
		return Commitment{}, ErrCommitmentNotFound
	}
	existing.Status = status
	existing.UpdatedAt = l.now()
	l.commitments[id] = existing
	return l.derived(existing), nil
}

// BySession lists commitments for one session, oldest first.
func (l *Ledger) BySession(_ context.Context, sessionID string) []Commitment {
	return l.list(func(c Commitment) bool { return c.SessionID == sessionID })
}

// ByCustomer lists commitments across all of a customer's sessions.
func (l *Ledger) ByCustomer(_ context.Context, customerID string) []Commitment {
	return l.list(func(c Commitment) bool { return c.CustomerID == customerID })
}

// Overdue lists every active commitment with a deadline that has passed.
// Entries already in review are being wrapped up and stay out of the sweep.
func (l *Ledger) Overdue(_ context.Context) []Commitment {
	return l.list(func(c Commitment) bool {
		return c.Status == StatusActive && !c.DueAt.IsZero() && l.now().After(c.DueAt)
	})
}

func (l *Ledger) list(match func(Commitment) bool) []Commitment {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Commitment, 0, 4)
	for _, c := range l.commitments {
		if match(c) {
			out = append(out, l.derived(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// derived applies the read-time overdue projection.
func (l *Ledger) derived(c Commitment) Commitment {
	if c.Status != StatusDone && !c.DueAt.IsZero() && l.now().After(c.DueAt) {
		c.Status = StatusOverdue
	}
	return c
}

func dedupeKey(sessionID, title string) string {
	return sessionID + "|" + strings.ToLower(strings.TrimSpace(title))
}
