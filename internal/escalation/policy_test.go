package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydesk/internal/analysis/sentiment"
	"skydesk/internal/effort"
	"skydesk/internal/model/convo"
)

func testPolicy() *Policy {
	return NewPolicy(Thresholds{
		Urgency:        9,
		NegativeStreak: 2,
		StrongNegative: -0.4,
		VoiceRetries:   3,
		RepeatLimit:    4,
	})
}

func TestDecideHumanAgentRequest(t *testing.T) {
	got := testPolicy().Decide(Inputs{Intent: convo.IntentHumanAgent})
	assert.True(t, got.Escalate)
	require.Len(t, got.Reasons, 1)
	assert.Contains(t, got.Reasons[0], "human agent")
}

func TestDecideNegativeStreak(t *testing.T) {
	policy := testPolicy()

	// One strongly negative turn is not enough.
	got := policy.Decide(Inputs{
		Intent:  convo.IntentComplaint,
		Reading: sentiment.Reading{Valence: -0.8},
		Trend:   []float64{0.1},
	})
	assert.False(t, got.Escalate)

	// Two in a row fires.
	got = policy.Decide(Inputs{
		Intent:  convo.IntentComplaint,
		Reading: sentiment.Reading{Valence: -0.8},
		Trend:   []float64{0.1, -0.6},
	})
	assert.True(t, got.Escalate)
}

func TestDecideLatchedSessionStaysEscalated(t *testing.T) {
	got := testPolicy().Decide(Inputs{
		Intent:  convo.IntentGeneralInquiry,
		Reading: sentiment.Reading{Valence: 0.6},
		Session: convo.Session{Escalated: true},
	})
	assert.True(t, got.Escalate, "calm turns never unlatch an escalation")
	assert.Empty(t, got.Reasons)
}

func TestDecideVoiceRetries(t *testing.T) {
	got := testPolicy().Decide(Inputs{
		Intent:  convo.IntentGeneralInquiry,
		Session: convo.Session{Channel: convo.ChannelVoice, VoiceRetries: 3},
	})
	assert.True(t, got.Escalate)
}

func TestDecideCalmTurnDoesNotEscalate(t *testing.T) {
	got := testPolicy().Decide(Inputs{
		Intent:  convo.IntentDelayInfo,
		Reading: sentiment.Reading{Valence: 0.1},
		Effort:  effort.Assessment{Level: effort.LevelLow},
	})
	assert.False(t, got.Escalate)
}

func TestBuildHandoffCarriesContext(t *testing.T) {
	sess := convo.Session{
		ID: "sess-1",
		Entities: map[string]string{
			"bookingRef":   "AB12CD",
			"flightNumber": "F81234",
		},
		Turns: []convo.TurnRecord{
			{CustomerText: "my flight is delayed", Reply: "F81234 is delayed 47 minutes."},
			{CustomerText: "get me a human"},
		},
	}

	pkg := testPolicy().BuildHandoff(sess, "SUP-1A2B3C4D", []string{"customer asked for a human agent"})
	assert.Equal(t, "sess-1", pkg.SessionID)
	assert.Equal(t, "SUP-1A2B3C4D", pkg.Reference)
	assert.Equal(t, "AB12CD", pkg.Entities["bookingRef"])
	require.Len(t, pkg.RecentTurns, 2)
	assert.Equal(t, "my flight is delayed", pkg.RecentTurns[0].CustomerText)
	assert.Equal(t, "F81234 is delayed 47 minutes.", pkg.RecentTurns[0].Reply)
	assert.Equal(t, []string{"customer asked for a human agent"}, pkg.Reasons)
}
