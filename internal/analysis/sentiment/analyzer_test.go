package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeValence(t *testing.T) {
	positive := Analyze("thanks, that was really helpful")
	assert.Greater(t, positive.Valence, 0.0)
	assert.Equal(t, Satisfied, positive.Emotion)

	negative := Analyze("this is unacceptable, absolutely the worst service")
	assert.Less(t, negative.Valence, -0.5)

	neutral := Analyze("what time does boarding start")
	assert.Equal(t, 0.0, neutral.Valence)
	assert.Equal(t, Neutral, neutral.Emotion)
}

func TestAnalyzeAngryNeedsHeatAndHostility(t *testing.T) {
	angry := Analyze("THIS IS UNACCEPTABLE!! worst airline ever, I am furious")
	assert.Equal(t, Angry, angry.Emotion)
	assert.GreaterOrEqual(t, angry.Arousal, 0.4)

	flat := Analyze("I am disappointed with how this was handled")
	assert.Equal(t, Frustrated, flat.Emotion)
}

func TestAnalyzeAnxious(t *testing.T) {
	got := Analyze("I'm really worried, what do I do about my connection?")
	assert.Equal(t, Anxious, got.Emotion)
}

func TestSlope(t *testing.T) {
	assert.Equal(t, 0.0, Slope(nil))
	assert.Equal(t, 0.0, Slope([]float64{0.5}))
	assert.InDelta(t, -0.3, Slope([]float64{0.4, 0.1, -0.2}), 0.001)
	assert.InDelta(t, 0.2, Slope([]float64{-0.2, 0.0, 0.2}), 0.001)
}

func TestNegativeStreak(t *testing.T) {
	assert.Equal(t, 0, NegativeStreak(nil, -0.4))
	assert.Equal(t, 2, NegativeStreak([]float64{0.2, -0.5, -0.6}, -0.4))
	assert.Equal(t, 0, NegativeStreak([]float64{-0.5, -0.6, 0.1}, -0.4))
	assert.Equal(t, 1, NegativeStreak([]float64{-0.3, -0.9}, -0.4), "readings at the threshold do not count")
}
