package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydesk/internal/config"
	"skydesk/internal/continuity"
	"skydesk/internal/effort"
	"skydesk/internal/escalation"
	"skydesk/internal/ledger"
	"skydesk/internal/model/convo"
	"skydesk/internal/reference"
	"skydesk/internal/service/ai"
	"skydesk/internal/session"
	"skydesk/internal/tools"
)

func testCore() config.CoreConfig {
	return config.CoreConfig{
		TurnWindow:          20,
		SentimentWindow:     6,
		LowConfidence:       0.45,
		ToolTimeout:         2 * time.Second,
		EffortHighTurns:     8,
		EffortMediumTurns:   4,
		EffortRepeatLimit:   3,
		EffortSlopeCutoff:   -0.15,
		UrgencyEscalation:   9,
		NegativeStreak:      2,
		StrongNegative:      -0.4,
		VoiceRetryThreshold: 3,
		ReplayCache:         20,
		MonitorInterval:     time.Minute,
	}
}

func testTenant() config.TenantConfig {
	return config.TenantConfig{
		DefaultTenant:      "skydesk",
		BrandName:          "SkyDesk",
		CallCenterPhone:    "1-403-709-0808",
		AccessibilityPhone: "1-833-382-5421",
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, tools.Toolset) {
	t.Helper()

	core := testCore()
	tenant := testTenant()
	store := session.NewStore(core.TurnWindow, core.SentimentWindow)
	refs := reference.NewStore()
	toolset := tools.MockToolset()

	classifier, err := ai.NewService(context.Background(), nil, ai.Config{}, nil)
	require.NoError(t, err)

	orch := New(Deps{
		Store:      store,
		Classifier: classifier,
		Scorer: effort.NewScorer(effort.Thresholds{
			HighTurns:   core.EffortHighTurns,
			MediumTurns: core.EffortMediumTurns,
			RepeatLimit: core.EffortRepeatLimit,
			SlopeCutoff: core.EffortSlopeCutoff,
		}),
		Policy: escalation.NewPolicy(escalation.Thresholds{
			Urgency:        core.UrgencyEscalation,
			NegativeStreak: core.NegativeStreak,
			StrongNegative: core.StrongNegative,
			VoiceRetries:   core.VoiceRetryThreshold,
			RepeatLimit:    core.EffortRepeatLimit + 1,
		}),
		Ledger:     ledger.New(),
		References: refs,
		Continuity: continuity.NewManager(toolset.SMS, toolset.CRM, refs, tenant, nil),
		Tools:      toolset,
		Core:       core,
		Tenant:     tenant,
	})
	return orch, toolset
}

func turn(sessionID, text string) TurnInput {
	return TurnInput{
		SessionID:  sessionID,
		CustomerID: "cust-1",
		Channel:    convo.ChannelWeb,
		Text:       text,
	}
}

func TestProcessTurnRejectsEmptyText(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.ProcessTurn(context.Background(), turn("sess-1", "   "))
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestProcessTurnDelayLookup(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	resp, err := orch.ProcessTurn(ctx, turn("sess-1", "Is my flight delayed? My booking is AB12CD"))
	require.NoError(t, err)

	assert.Equal(t, "disruption", resp.Handler)
	assert.Contains(t, resp.Message, "47")
	assert.False(t, resp.Escalate)

	var found bool
	for _, a := range resp.Artifacts {
		if a.Kind == convo.ArtifactFlightStatus {
			found = true
			require.NotNil(t, a.FlightStatus)
			assert.Equal(t, "DELAYED", a.FlightStatus.Status)
		}
	}
	assert.True(t, found, "flight status artifact missing")

	sess, err := orch.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", sess.Entities["bookingRef"])
	assert.Len(t, sess.Turns, 1)
	assert.Equal(t, int64(2), sess.NextSeq)
}

func TestCancelledFlightOptionPickResolves(t *testing.T) {
	orch, toolset := newTestOrchestrator(t)
	ctx := context.Background()
	flights := toolset.Flights.(*tools.MockFlightStatusAPI)
	flights.SetStatus(tools.FlightInfo{FlightNumber: "F81234", Status: "CANCELLED"})

	offered, err := orch.ProcessTurn(ctx, turn("sess-1", "My flight got cancelled! It's F81234, booking AB12CD"))
	require.NoError(t, err)
	assert.Equal(t, "disruption", offered.Handler)
	assert.Contains(t, offered.Message, "Option 1")

	picked, err := orch.ProcessTurn(ctx, turn("sess-1", "option 1"))
	require.NoError(t, err)
	assert.Contains(t, picked.Message, "F81240", "the pick must complete the rebooking")

	sess, err := orch.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, convo.StageResolved, sess.Stage)
	assert.Empty(t, sess.PendingAction)
}

func TestEscalatedTurnsSkipFastPathPreamble(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	// Enough repeated turns to drive effort high while every turn is
	// escalation-worthy; the handoff must never carry the fast-path tone.
	for i := 0; i < 9; i++ {
		resp, err := orch.ProcessTurn(ctx, turn("sess-1", "I need a human agent right now"))
		require.NoError(t, err)
		assert.True(t, resp.Escalate)
		assert.NotContains(t, resp.Message, "Thanks for sticking with this")
	}
}

func TestProcessTurnReplayAndStaleSequence(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	in := turn("sess-1", "Is my flight delayed? My booking is AB12CD")
	in.Seq = 1

	first, err := orch.ProcessTurn(ctx, in)
	require.NoError(t, err)

	// Same sequence, same text: byte-identical cached response, no new turn.
	replayed, err := orch.ProcessTurn(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first, replayed)

	sess, err := orch.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 1)

	// Same sequence, different text: stale delivery.
	stale := in
	stale.Text = "Actually cancel my booking AB12CD"
	_, err = orch.ProcessTurn(ctx, stale)
	assert.ErrorIs(t, err, ErrStaleSequence)
}

func TestEscalationLatchAndClear(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	resp, err := orch.ProcessTurn(ctx, turn("sess-1", "I need to speak to a human agent right now"))
	require.NoError(t, err)

	assert.True(t, resp.Escalate)
	assert.Equal(t, convo.StageEscalated, resp.Stage)
	assert.Equal(t, "handoff", resp.Handler)
	assert.True(t, strings.HasPrefix(resp.SupportReference, "SUP-"), "support reference %q", resp.SupportReference)

	var handoff *convo.HandoffPackage
	for _, a := range resp.Artifacts {
		if a.Kind == convo.ArtifactHandoffPackage {
			handoff = a.Handoff
		}
	}
	require.NotNil(t, handoff, "handoff package artifact missing")
	assert.NotEmpty(t, handoff.RecentTurns)

	// The latch holds through a calm turn on a different topic.
	resp, err = orch.ProcessTurn(ctx, turn("sess-1", "Where is my checked bag for AB12CD"))
	require.NoError(t, err)
	assert.True(t, resp.Escalate)
	assert.Equal(t, convo.StageEscalated, resp.Stage)

	// Only the explicit clear unlatches.
	require.NoError(t, orch.ClearEscalation(ctx, "sess-1"))

	sess, err := orch.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, sess.Escalated)
	assert.Equal(t, convo.StageResolving, sess.Stage)

	resp, err = orch.ProcessTurn(ctx, turn("sess-1", "What is the carry-on allowance?"))
	require.NoError(t, err)
	assert.False(t, resp.Escalate)
}

func TestResetPhraseMintsReplacementSession(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := orch.ProcessTurn(ctx, turn("sess-1", "Is my flight delayed? My booking is AB12CD"))
	require.NoError(t, err)

	resp, err := orch.ProcessTurn(ctx, turn("sess-1", "Let's start over please"))
	require.NoError(t, err)

	require.NotEmpty(t, resp.ReplacementSessionID)
	assert.NotEqual(t, "sess-1", resp.ReplacementSessionID)
	assert.Contains(t, resp.Message, "starting fresh")

	// Old session stays queryable for audit; the replacement starts clean.
	old, err := orch.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, old.Turns, 2)

	fresh, err := orch.Session(ctx, resp.ReplacementSessionID)
	require.NoError(t, err)
	assert.Empty(t, fresh.Turns)
	assert.Equal(t, "cust-1", fresh.CustomerID)
}

func TestResetSessionOperation(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := orch.ProcessTurn(ctx, turn("sess-1", "Where is my checked bag for AB12CD"))
	require.NoError(t, err)

	replacement, err := orch.ResetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotEmpty(t, replacement)

	fresh, err := orch.Session(ctx, replacement)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", fresh.CustomerID)
}

func TestContinueChannelCarriesContext(t *testing.T) {
	orch, toolset := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := orch.ProcessTurn(ctx, turn("sess-1", "Is my flight delayed? My booking is AB12CD"))
	require.NoError(t, err)

	cont, err := orch.ContinueChannel(ctx, "sess-1", convo.ChannelSMS, "555-0100")
	require.NoError(t, err)

	assert.True(t, cont.Delivered)
	assert.True(t, strings.HasPrefix(cont.Reference, "SUP-"))
	assert.NotEmpty(t, cont.Summary)

	sms := toolset.SMS.(*tools.MockSMSGateway)
	require.Len(t, sms.Sent(), 1)
	assert.Contains(t, sms.Sent()[0], cont.Reference)

	sess, err := orch.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "web", sess.Entities["continuedFrom"])
}

func TestContinueChannelUnknownSession(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.ContinueChannel(context.Background(), "missing", convo.ChannelSMS, "555-0100")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestDegradedResponseOnToolOutage(t *testing.T) {
	orch, toolset := newTestOrchestrator(t)
	ctx := context.Background()

	toolset.Booking.(*tools.MockBookingAPI).SetDown(true)

	resp, err := orch.ProcessTurn(ctx, turn("sess-1", "I want a refund for booking AB12CD"))
	require.NoError(t, err)

	assert.Contains(t, resp.Message, "1-403-709-0808")
	assert.NotEqual(t, convo.StageResolved, resp.Stage)

	// The turn still committed; the customer can retry once the tool is back.
	toolset.Booking.(*tools.MockBookingAPI).SetDown(false)
	sess, err := orch.Session(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 1)
}

func TestPromisesLandInLedger(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	resp, err := orch.ProcessTurn(ctx, turn("sess-1", "Where is my checked bag for AB12CD"))
	require.NoError(t, err)
	require.Equal(t, "baggage", resp.Handler)

	commitments := orch.Commitments(ctx, "cust-1")
	require.NotEmpty(t, commitments)
	assert.Equal(t, "sess-1", commitments[0].SessionID)
}

func TestVoiceTurnGetsSpokenRendering(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	in := turn("sess-1", "Is my flight delayed? My booking is AB12CD")
	in.Channel = convo.ChannelVoice

	resp, err := orch.ProcessTurn(context.Background(), in)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Spoken)
	assert.NotContains(t, resp.Spoken, "$")
}

func TestSMSTurnGetsSegments(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	in := turn("sess-1", "Is my flight delayed? My booking is AB12CD")
	in.Channel = convo.ChannelSMS

	resp, err := orch.ProcessTurn(context.Background(), in)
	require.NoError(t, err)

	require.NotEmpty(t, resp.Segments)
	for _, seg := range resp.Segments {
		assert.LessOrEqual(t, len(seg), 160)
	}
}

func TestSequentialTurnsKeepOrder(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	texts := []string{
		"Is my flight delayed? My booking is AB12CD",
		"Where is my checked bag for AB12CD",
		"What is the carry-on allowance?",
	}
	for i, text := range texts {
		resp, err := orch.ProcessTurn(ctx, turn("sess-1", text))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), resp.Seq)
	}

	sess, err := orch.Session(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Turns, 3)
	for i, rec := range sess.Turns {
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.Equal(t, texts[i], rec.CustomerText)
	}
}
