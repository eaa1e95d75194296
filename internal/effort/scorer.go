package effort

import (
	"skydesk/internal/analysis/sentiment"
	"skydesk/internal/model/convo"
)

// Level buckets the effort score for routing and response shaping.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Assessment is the effort read for a session at a point in time. When the
// fast path is active, specialists skip optional confirmation steps and the
// orchestrator prepends acknowledgement of the effort already spent.
type Assessment struct {
	Score          int   `json:"score"`
	Level          Level `json:"level"`
	FastPathActive bool  `json:"fastPathActive"`
}

// Thresholds are the tuned inputs of the scorer.
type Thresholds struct {
	HighTurns   int
	MediumTurns int
	RepeatLimit int
	SlopeCutoff float64
}

// Scorer derives how hard a customer has had to work to get help.
type Scorer struct {
	thresholds Thresholds
}

// NewScorer builds a scorer with the given thresholds.
func NewScorer(thresholds Thresholds) *Scorer {
	if thresholds.HighTurns <= 0 {
		thresholds.HighTurns = 8
	}
	if thresholds.MediumTurns <= 0 {
		thresholds.MediumTurns = 4
	}
	if thresholds.RepeatLimit <= 0 {
		thresholds.RepeatLimit = 3
	}
	if thresholds.SlopeCutoff == 0 {
		thresholds.SlopeCutoff = -0.15
	}
	return &Scorer{thresholds: thresholds}
}

// Assess scores the session as it stands, including the turn in flight.
func (s *Scorer) Assess(sess convo.Session, currentIntent convo.Intent) Assessment {
	score := 0

	turns := len(sess.Turns) + 1
	switch {
	case turns >= s.thresholds.HighTurns:
		score += 4
	case turns >= s.thresholds.MediumTurns:
		score += 2
	}

	// Asking for the same thing again and again is the strongest effort
	// signal we have.
	repeats := sess.RepeatedIntentCount(currentIntent) + 1
	if repeats >= s.thresholds.RepeatLimit {
		score += 3
	} else if repeats == s.thresholds.RepeatLimit-1 {
		score += 1
	}

	if sentiment.Slope(sess.SentimentTrend) <= s.thresholds.SlopeCutoff && len(sess.SentimentTrend) >= 2 {
		score += 2
	}

	// Having to switch channels mid-issue is effort the customer already
	// spent elsewhere.
	if sess.Entity("continuedFrom") != "" {
		score += 2
	}

	if sess.VoiceRetries > 0 {
		score += sess.VoiceRetries
	}

	level := LevelLow
	switch {
	case score >= 6:
		level = LevelHigh
	case score >= 3:
		level = LevelMedium
	}

	return Assessment{
		Score:          score,
		Level:          level,
		FastPathActive: level == LevelHigh,
	}
}
