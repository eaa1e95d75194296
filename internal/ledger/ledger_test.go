package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLedger(now time.Time) *Ledger {
	l := New()
	l.now = func() time.Time { return now }
	return l
}

func TestRecordDedupesByTitleWithinSession(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l := fixedLedger(now)
	ctx := context.Background()

	first := l.Record(ctx, "sess-1", "cust-1", "Bag delivery update", "trace opened", now.Add(24*time.Hour))
	second := l.Record(ctx, "sess-1", "cust-1", "bag delivery update", "courier assigned", now.Add(12*time.Hour))

	assert.Equal(t, first.ID, second.ID, "same promise retried must not duplicate")
	assert.Equal(t, "courier assigned", second.Detail)

	list := l.BySession(ctx, "sess-1")
	require.Len(t, list, 1)

	other := l.Record(ctx, "sess-2", "cust-1", "Bag delivery update", "trace opened", now.Add(24*time.Hour))
	assert.NotEqual(t, first.ID, other.ID, "dedupe is scoped to the session")
}

func TestOverdueIsDerivedAtReadTime(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l := fixedLedger(now)
	ctx := context.Background()

	c := l.Record(ctx, "sess-1", "cust-1", "Refund confirmation", "5 business days", now.Add(time.Hour))
	assert.Equal(t, StatusActive, c.Status)

	// Move the clock past the deadline; nothing was written, the status
	// projection just changes.
	l.now = func() time.Time { return now.Add(2 * time.Hour) }

	list := l.BySession(ctx, "sess-1")
	require.Len(t, list, 1)
	assert.Equal(t, StatusOverdue, list[0].Status)

	overdue := l.Overdue(ctx)
	require.Len(t, overdue, 1)
	assert.Equal(t, c.ID, overdue[0].ID)
}

func TestOverdueSkipsReviewAndUndatedEntries(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l := fixedLedger(now)
	ctx := context.Background()

	active := l.Record(ctx, "sess-1", "cust-1", "Refund confirmation", "5 business days", now.Add(time.Hour))
	reviewed := l.Record(ctx, "sess-1", "cust-1", "Bag delivery", "by tonight", now.Add(time.Hour))
	_, err := l.Resolve(ctx, reviewed.ID, StatusReview)
	require.NoError(t, err)
	l.Record(ctx, "sess-2", "cust-1", "Follow-up note", "no deadline attached", time.Time{})

	l.now = func() time.Time { return now.Add(2 * time.Hour) }

	overdue := l.Overdue(ctx)
	require.Len(t, overdue, 1, "review and undated entries stay out of the sweep")
	assert.Equal(t, active.ID, overdue[0].ID)
}

func TestResolveDone(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l := fixedLedger(now)
	ctx := context.Background()

	c := l.Record(ctx, "sess-1", "cust-1", "Refund confirmation", "5 business days", now.Add(time.Hour))

	resolved, err := l.Resolve(ctx, c.ID, StatusDone)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, resolved.Status)

	// Done commitments never flip to overdue.
	l.now = func() time.Time { return now.Add(48 * time.Hour) }
	list := l.BySession(ctx, "sess-1")
	require.Len(t, list, 1)
	assert.Equal(t, StatusDone, list[0].Status)
	assert.Empty(t, l.Overdue(ctx))

	_, err = l.Resolve(ctx, "missing", StatusDone)
	assert.ErrorIs(t, err, ErrCommitmentNotFound)
}

func TestByCustomerSpansSessions(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l := fixedLedger(now)
	ctx := context.Background()

	l.Record(ctx, "sess-1", "cust-1", "Refund confirmation", "", now.Add(time.Hour))
	l.now = func() time.Time { return now.Add(time.Minute) }
	l.Record(ctx, "sess-2", "cust-1", "Bag delivery update", "", now.Add(time.Hour))
	l.Record(ctx, "sess-3", "cust-2", "Callback", "", now.Add(time.Hour))

	list := l.ByCustomer(ctx, "cust-1")
	require.Len(t, list, 2)
	assert.Equal(t, "Refund confirmation", list[0].Title, "oldest first")
}
