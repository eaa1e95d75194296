package effort

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skydesk/internal/model/convo"
)

func testScorer() *Scorer {
	return NewScorer(Thresholds{HighTurns: 8, MediumTurns: 4, RepeatLimit: 3, SlopeCutoff: -0.15})
}

func sessionWithTurns(n int, intent convo.Intent) convo.Session {
	sess := convo.Session{Entities: map[string]string{}}
	for i := 0; i < n; i++ {
		sess.Turns = append(sess.Turns, convo.TurnRecord{Seq: int64(i), Intent: intent})
	}
	return sess
}

func TestAssessFreshSessionIsLow(t *testing.T) {
	got := testScorer().Assess(convo.Session{}, convo.IntentRefund)
	assert.Equal(t, LevelLow, got.Level)
	assert.False(t, got.FastPathActive)
}

func TestAssessRepeatedIntentRaisesEffort(t *testing.T) {
	sess := sessionWithTurns(2, convo.IntentRefund)
	got := testScorer().Assess(sess, convo.IntentRefund)
	assert.GreaterOrEqual(t, got.Score, 3, "third ask of the same thing scores the repeat signal")
	assert.NotEqual(t, LevelLow, got.Level)
}

func TestAssessLongSouringSessionActivatesFastPath(t *testing.T) {
	sess := sessionWithTurns(8, convo.IntentBaggage)
	sess.SentimentTrend = []float64{0.1, -0.2, -0.5}

	got := testScorer().Assess(sess, convo.IntentBaggage)
	assert.Equal(t, LevelHigh, got.Level)
	assert.True(t, got.FastPathActive)
}

func TestAssessChannelSwitchCountsAsEffort(t *testing.T) {
	scorer := testScorer()

	plain := convo.Session{}
	switched := convo.Session{Entities: map[string]string{"continuedFrom": "web"}}

	assert.Greater(t, scorer.Assess(switched, convo.IntentRefund).Score,
		scorer.Assess(plain, convo.IntentRefund).Score)
}
