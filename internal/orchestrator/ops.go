package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skydesk/internal/continuity"
	"skydesk/internal/effort"
	"skydesk/internal/ledger"
	"skydesk/internal/model/convo"
	"skydesk/internal/reference"
)

// ContinueChannel prepares the session for pickup on another channel.
func (o *Orchestrator) ContinueChannel(ctx context.Context, sessionID string, target convo.Channel, phone string) (continuity.Continuation, error) {
	release := o.locks.Acquire(sessionID)
	defer release()

	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return continuity.Continuation{}, err
	}

	cont, err := o.cont.Prepare(ctx, sess, target, phone)
	if err != nil {
		return continuity.Continuation{}, err
	}

	// The next turn on the new channel scores the switch as effort
	// already spent.
	if sess.Entities == nil {
		sess.Entities = make(map[string]string)
	}
	sess.Entities["continuedFrom"] = string(sess.Channel)
	if _, err := o.commit(ctx, sess); err != nil {
		return continuity.Continuation{}, fmt.Errorf("commit channel switch: %w", err)
	}

	return cont, nil
}

// ResetSession mints a replacement session id. The old session stays
// queryable; its replay cache is dropped since no more turns will land on
// it with old sequences.
func (o *Orchestrator) ResetSession(ctx context.Context, sessionID string) (string, error) {
	release := o.locks.Acquire(sessionID)
	defer release()

	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	replacement := uuid.NewString()
	if _, err := o.store.GetOrCreate(ctx, replacement, sess.CustomerID, sess.TenantID, sess.Channel); err != nil {
		return "", err
	}

	o.replay.drop(sessionID)
	o.logger.Info("session reset requested",
		zap.String("sessionId", sessionID),
		zap.String("replacement", replacement))
	return replacement, nil
}

// ClearEscalation is the explicit external unlatch: a human resolved the
// escalation and the session returns to automated handling.
func (o *Orchestrator) ClearEscalation(ctx context.Context, sessionID string) error {
	release := o.locks.Acquire(sessionID)
	defer release()

	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.Escalated = false
	if sess.Stage == convo.StageEscalated {
		sess.Stage = convo.StageResolving
	}

	if _, err := o.commit(ctx, sess); err != nil {
		return fmt.Errorf("commit escalation clear: %w", err)
	}

	o.logger.Info("escalation cleared", zap.String("sessionId", sessionID))
	return nil
}

// Session returns a read-only snapshot for history and audit views.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (convo.Session, error) {
	return o.store.Get(ctx, sessionID)
}

// References lists a customer's support references, newest first.
func (o *Orchestrator) References(ctx context.Context, customerID string) []reference.Reference {
	return o.refs.ByCustomer(ctx, customerID)
}

// Reference resolves one SUP identifier.
func (o *Orchestrator) Reference(ctx context.Context, id string) (reference.Reference, error) {
	return o.refs.Get(ctx, id)
}

// Commitments lists a customer's commitments across sessions.
func (o *Orchestrator) Commitments(ctx context.Context, customerID string) []ledger.Commitment {
	return o.ledger.ByCustomer(ctx, customerID)
}

// SessionEffort computes the current effort read for a session.
func (o *Orchestrator) SessionEffort(ctx context.Context, sessionID string) (effort.Assessment, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return effort.Assessment{}, err
	}
	return o.scorer.Assess(sess, sess.LastIntent), nil
}

// OverdueCommitments lists the customer's commitments past their deadline.
func (o *Orchestrator) OverdueCommitments(ctx context.Context, customerID string) []ledger.Commitment {
	overdue := o.ledger.Overdue(ctx)
	out := make([]ledger.Commitment, 0, len(overdue))
	for _, c := range overdue {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out
}

// CustomerSessionIDs lists the ids of the customer's sessions, for scoping
// per-session feeds like disruption alerts.
func (o *Orchestrator) CustomerSessionIDs(ctx context.Context, customerID string) []string {
	var ids []string
	for _, sess := range o.store.List(ctx) {
		if sess.CustomerID == customerID {
			ids = append(ids, sess.ID)
		}
	}
	return ids
}
