package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skydesk/internal/analysis/intent"
	"skydesk/internal/analysis/sentiment"
	"skydesk/internal/channel"
	"skydesk/internal/config"
	"skydesk/internal/continuity"
	"skydesk/internal/effort"
	"skydesk/internal/escalation"
	"skydesk/internal/ledger"
	"skydesk/internal/model/convo"
	"skydesk/internal/reference"
	"skydesk/internal/service/ai"
	"skydesk/internal/session"
	"skydesk/internal/specialist"
	"skydesk/internal/tools"
)

var (
	ErrEmptyMessage  = errors.New("message text is required")
	ErrStaleSequence = errors.New("sequence already processed with different text")
)

// Deps are the collaborators the orchestrator composes.
type Deps struct {
	Store      *session.Store
	Classifier *ai.Service
	Scorer     *effort.Scorer
	Policy     *escalation.Policy
	Ledger     *ledger.Ledger
	References *reference.Store
	Continuity *continuity.Manager
	Tools      tools.Toolset
	Core       config.CoreConfig
	Tenant     config.TenantConfig
	Logger     *zap.Logger
}

// Orchestrator runs the per-turn pipeline: classify, route, act, commit.
// One turn per session at a time; sessions proceed independently.
type Orchestrator struct {
	store      *session.Store
	locks      *session.Locks
	classifier *ai.Service
	scorer     *effort.Scorer
	policy     *escalation.Policy
	ledger     *ledger.Ledger
	refs       *reference.Store
	cont       *continuity.Manager
	tools      tools.Toolset
	core       config.CoreConfig
	tenant     config.TenantConfig
	logger     *zap.Logger
	replay     *replayCache
}

// New wires an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:      deps.Store,
		locks:      session.NewLocks(),
		classifier: deps.Classifier,
		scorer:     deps.Scorer,
		policy:     deps.Policy,
		ledger:     deps.Ledger,
		refs:       deps.References,
		cont:       deps.Continuity,
		tools:      deps.Tools,
		core:       deps.Core,
		tenant:     deps.Tenant,
		logger:     logger,
		replay:     newReplayCache(deps.Core.ReplayCache),
	}
}

// TurnInput is one inbound customer message.
type TurnInput struct {
	SessionID  string
	CustomerID string
	TenantID   string
	Channel    convo.Channel
	Text       string
	// Seq is the client's sequence number for redelivery dedupe; zero
	// lets the orchestrator assign the next one.
	Seq int64
}

// ProcessTurn runs the full pipeline for one message and returns the
// structured response. Identical redeliveries return the cached response.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (convo.TurnResponse, error) {
	if strings.TrimSpace(in.Text) == "" {
		return convo.TurnResponse{}, ErrEmptyMessage
	}
	if in.TenantID == "" {
		in.TenantID = o.tenant.DefaultTenant
	}
	if in.Channel == "" {
		in.Channel = convo.ChannelWeb
	}

	release := o.locks.Acquire(in.SessionID)
	defer release()

	started := time.Now()

	snap, err := o.store.GetOrCreate(ctx, in.SessionID, in.CustomerID, in.TenantID, in.Channel)
	if err != nil {
		return convo.TurnResponse{}, err
	}

	// Redelivery handling: a sequence we already processed either replays
	// the original response or, with different text, is a stale delivery.
	if in.Seq > 0 && in.Seq < snap.NextSeq {
		if cached, ok := o.replay.lookup(in.SessionID, in.Seq); ok {
			if cached.text == in.Text {
				return cached.resp, nil
			}
			return convo.TurnResponse{}, ErrStaleSequence
		}
		return convo.TurnResponse{}, ErrStaleSequence
	}
	seq := snap.NextSeq

	if resetRequested(in.Text) {
		return o.resetTurn(ctx, snap, in, seq)
	}

	// Classification. Entities come from the deterministic extractor even
	// when the model path is on.
	result := o.classifier.Classify(ctx, in.Text, intent.Context{
		LastIntent:    snap.LastIntent,
		LastStage:     snap.Stage,
		KnownEntities: snap.Entities,
	})

	reading := sentiment.Analyze(in.Text)

	// Merge validated entities, most recent mention wins.
	if snap.Entities == nil {
		snap.Entities = make(map[string]string)
	}
	for k, v := range result.Entities {
		snap.Entities[k] = v
	}

	effortRead := o.scorer.Assess(snap, result.Intent)

	decision := o.policy.Decide(escalation.Inputs{
		Intent:  result.Intent,
		Urgency: result.Urgency,
		Reading: reading,
		Trend:   snap.SentimentTrend,
		Effort:  effortRead,
		Session: snap,
	})
	freshEscalation := decision.Escalate && !snap.Escalated

	// The fast path is a convenience for worn-down customers, never a
	// companion to escalation: an escalating turn belongs to the handoff.
	if decision.Escalate || snap.Escalated {
		effortRead.FastPathActive = false
	}

	routedIntent := result.Intent
	if result.Confidence < o.core.LowConfidence && !result.CarriedOver {
		routedIntent = convo.IntentGeneralInquiry
	}

	handlerName, handle := specialist.Route(routedIntent)
	if freshEscalation {
		handlerName, handle = "handoff", specialist.HandleHandoff
	}

	req := specialist.Request{
		Text:       in.Text,
		Intent:     routedIntent,
		Confidence: result.Confidence,
		Affirmed:   intent.IsAffirmation(in.Text),
		Session:    snap,
		Effort:     effortRead,
		Tools:      o.tools,
		Tenant:     o.tenant,
	}

	toolCtx, cancel := context.WithTimeout(ctx, o.core.ToolTimeout)
	res, handlerErr := handle(toolCtx, req)
	cancel()
	if handlerErr != nil {
		o.logger.Error("handler failed, serving degraded response",
			zap.String("sessionId", in.SessionID),
			zap.String("handler", handlerName),
			zap.Error(handlerErr))
		res = o.degradedResult(handlerErr, snap)
	}

	escalate := decision.Escalate || res.Stage == convo.StageEscalated
	stage := nextStage(res, escalate)

	reply := o.decorateReply(res.Reply, reading, effortRead, handlerErr != nil)

	// Side effects: commitments and support references.
	now := time.Now().UTC()
	for _, p := range res.Promises {
		o.ledger.Record(ctx, in.SessionID, snap.CustomerID, p.Title, p.Detail, now.Add(p.DueIn))
	}

	var supportRef string
	artifacts := res.Artifacts
	if res.CaseKind != "" || escalate {
		kind := res.CaseKind
		if kind == "" {
			kind = "escalation"
		}
		supportRef = o.caseReference(ctx, snap, kind, res.CaseSummary)
		artifacts = append(artifacts, convo.Artifact{
			Kind: convo.ArtifactCaseReference,
			Case: &convo.CaseReference{CaseID: supportRef, Subject: res.CaseSummary},
		})
		if !strings.Contains(reply, supportRef) {
			reply += fmt.Sprintf(" Your reference is %s.", supportRef)
		}
	}

	if freshEscalation {
		handoff := o.policy.BuildHandoff(snap, supportRef, decision.Reasons)
		artifacts = append(artifacts, convo.Artifact{Kind: convo.ArtifactHandoffPackage, Handoff: &handoff})
	}

	// Assemble and commit the new session state in one CAS write.
	snap.Stage = stage
	snap.LastIntent = result.Intent
	snap.LastHandler = handlerName
	snap.LastNextActions = res.NextActions
	snap.PendingAction = res.PendingAction
	snap.Escalated = snap.Escalated || decision.Escalate || res.Stage == convo.StageEscalated
	snap.SentimentTrend = append(snap.SentimentTrend, reading.Valence)
	if in.Channel == convo.ChannelVoice && result.Confidence < o.core.LowConfidence {
		snap.VoiceRetries++
	} else {
		snap.VoiceRetries = 0
	}
	snap.Channel = in.Channel
	snap.Turns = append(snap.Turns, convo.TurnRecord{
		Seq:          seq,
		CustomerText: in.Text,
		Intent:       result.Intent,
		Confidence:   result.Confidence,
		Handler:      handlerName,
		Reply:        reply,
		Artifacts:    artifacts,
		At:           now,
	})
	snap.NextSeq = seq + 1

	committed, err := o.commit(ctx, snap)
	if err != nil {
		return convo.TurnResponse{}, fmt.Errorf("commit turn: %w", err)
	}

	resp := convo.TurnResponse{
		SessionID:        committed.ID,
		CustomerID:       committed.CustomerID,
		TenantID:         committed.TenantID,
		Channel:          in.Channel,
		Seq:              seq,
		Message:          reply,
		Stage:            committed.Stage,
		Intent:           result.Intent,
		Handler:          handlerName,
		Artifacts:        artifacts,
		NextActions:      res.NextActions,
		Plan:             buildPlan(committed, result.Intent, committed.Stage, committed.Escalated, handlerName),
		Escalate:         committed.Escalated,
		SupportReference: supportRef,
	}
	o.adaptForChannel(&resp)

	o.replay.put(in.SessionID, seq, in.Text, resp)

	o.logger.Info("turn processed",
		zap.String("sessionId", in.SessionID),
		zap.Int64("seq", seq),
		zap.String("intent", string(result.Intent)),
		zap.Float64("confidence", result.Confidence),
		zap.String("handler", handlerName),
		zap.String("stage", string(committed.Stage)),
		zap.Bool("escalate", committed.Escalated),
		zap.Duration("took", time.Since(started)))

	return resp, nil
}

// commit applies the snapshot, retrying once on a version conflict by
// rebasing onto the stored version. Conflicts are rare because turns are
// serialized per session; only admin operations race with turns.
func (o *Orchestrator) commit(ctx context.Context, snap convo.Session) (convo.Session, error) {
	committed, err := o.store.Commit(ctx, snap)
	if !errors.Is(err, session.ErrVersionConflict) {
		return committed, err
	}

	fresh, getErr := o.store.Get(ctx, snap.ID)
	if getErr != nil {
		return convo.Session{}, getErr
	}
	snap.Version = fresh.Version
	snap.Escalated = snap.Escalated || fresh.Escalated
	return o.store.Commit(ctx, snap)
}

func (o *Orchestrator) resetTurn(ctx context.Context, snap convo.Session, in TurnInput, seq int64) (convo.TurnResponse, error) {
	replacement := uuid.NewString()
	if _, err := o.store.GetOrCreate(ctx, replacement, snap.CustomerID, snap.TenantID, in.Channel); err != nil {
		return convo.TurnResponse{}, err
	}

	reply := "No problem, we're starting fresh. Everything from before stays on file under your existing references, and nothing carries over unless you bring it up."

	snap.Turns = append(snap.Turns, convo.TurnRecord{
		Seq:          seq,
		CustomerText: in.Text,
		Intent:       convo.IntentGeneralInquiry,
		Handler:      "general",
		Reply:        reply,
		At:           time.Now().UTC(),
	})
	snap.NextSeq = seq + 1

	committed, err := o.commit(ctx, snap)
	if err != nil {
		return convo.TurnResponse{}, fmt.Errorf("commit reset turn: %w", err)
	}

	resp := convo.TurnResponse{
		SessionID:            committed.ID,
		CustomerID:           committed.CustomerID,
		TenantID:             committed.TenantID,
		Channel:              in.Channel,
		Seq:                  seq,
		Message:              reply,
		Stage:                committed.Stage,
		Intent:               convo.IntentGeneralInquiry,
		Handler:              "general",
		NextActions:          []string{"Tell me what you need help with"},
		Plan:                 buildPlan(committed, convo.IntentGeneralInquiry, committed.Stage, committed.Escalated, "general"),
		Escalate:             committed.Escalated,
		ReplacementSessionID: replacement,
	}
	o.adaptForChannel(&resp)
	o.replay.put(in.SessionID, seq, in.Text, resp)

	o.logger.Info("session reset",
		zap.String("sessionId", in.SessionID),
		zap.String("replacement", replacement))

	return resp, nil
}

// degradedResult is the customer-safe fallback when a handler or one of
// its tools fails. The session still commits consistently.
func (o *Orchestrator) degradedResult(err error, snap convo.Session) specialist.Result {
	reply := fmt.Sprintf("I'm having trouble reaching one of our systems right now. Nothing you've told me is lost. Try again in a moment, or call %s and quote your session; an agent can pick this up immediately.", o.tenant.CallCenterPhone)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, tools.ErrToolUnavailable) {
		reply = fmt.Sprintf("That lookup is taking longer than it should, so I've stopped it rather than keep you waiting. Everything you've told me is saved; try again in a minute, or call %s to finish this with an agent.", o.tenant.CallCenterPhone)
	}

	return specialist.Result{
		Reply:       reply,
		Stage:       snap.Stage,
		NextActions: []string{"Try again in a moment", "Ask for a human agent"},
	}
}

// decorateReply prepends the empathy or effort acknowledgement preambles.
func (o *Orchestrator) decorateReply(reply string, reading sentiment.Reading, effortRead effort.Assessment, degraded bool) string {
	if degraded {
		return reply
	}

	lower := strings.ToLower(reply)
	switch {
	case reading.Valence <= o.core.StrongNegative:
		if !strings.HasPrefix(lower, "i'm sorry") && !strings.HasPrefix(lower, "i hear") {
			return "I hear you, and I'm sorry this has been so frustrating. " + reply
		}
	case effortRead.FastPathActive:
		return "Thanks for sticking with this; you won't have to repeat anything. " + reply
	}
	return reply
}

func nextStage(res specialist.Result, escalate bool) convo.Stage {
	if escalate {
		return convo.StageEscalated
	}
	if res.Stage != "" {
		return res.Stage
	}
	if res.Resolved {
		return convo.StageResolved
	}
	return convo.StageResolving
}

// caseReference reuses the session's newest reference of the same kind or
// mints a new one.
func (o *Orchestrator) caseReference(ctx context.Context, snap convo.Session, kind, summary string) string {
	for _, existing := range o.refs.BySession(ctx, snap.ID) {
		if existing.Kind == kind {
			if summary != "" {
				if _, err := o.refs.AppendEvent(ctx, existing.ID, summary); err != nil {
					o.logger.Warn("reference event append failed", zap.Error(err))
				}
			}
			return existing.ID
		}
	}
	if summary == "" {
		summary = continuity.Summarize(snap)
	}
	return o.refs.Create(ctx, snap.ID, snap.CustomerID, kind, summary).ID
}

// adaptForChannel fills the channel-specific renderings of the message.
func (o *Orchestrator) adaptForChannel(resp *convo.TurnResponse) {
	switch resp.Channel {
	case convo.ChannelVoice, convo.ChannelPhone:
		spoken := channel.Voiceify(resp.Message)
		if resp.SupportReference != "" {
			spoken += " Your reference, letter by letter: " + channel.SpellOutReference(resp.SupportReference) + "."
		}
		resp.Spoken = spoken
	case convo.ChannelSMS:
		resp.Segments = channel.SegmentSMS(resp.Message)
	}
}

var resetPhrases = []string{
	"start over",
	"start again",
	"start fresh",
	"new conversation",
	"forget all that",
	"forget everything",
	"from scratch",
}

func resetRequested(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "reset" {
		return true
	}
	for _, phrase := range resetPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}
