package escalation

import (
	"fmt"

	"skydesk/internal/analysis/sentiment"
	"skydesk/internal/effort"
	"skydesk/internal/model/convo"
)

// Decision is the policy's verdict for one turn. Reasons are customer-safe
// strings that also go into the handoff package.
type Decision struct {
	Escalate bool     `json:"escalate"`
	Reasons  []string `json:"reasons,omitempty"`
}

// Thresholds are the tuned trigger points of the policy.
type Thresholds struct {
	Urgency        int
	NegativeStreak int
	StrongNegative float64
	VoiceRetries   int
	RepeatLimit    int
}

// Policy decides when a conversation must reach a human. The session's
// escalated flag latches: once set it survives later calm turns and only an
// explicit clear resets it.
type Policy struct {
	thresholds Thresholds
}

// NewPolicy builds a policy with the given thresholds.
func NewPolicy(thresholds Thresholds) *Policy {
	if thresholds.Urgency <= 0 {
		thresholds.Urgency = 9
	}
	if thresholds.NegativeStreak <= 0 {
		thresholds.NegativeStreak = 2
	}
	if thresholds.StrongNegative == 0 {
		thresholds.StrongNegative = -0.4
	}
	if thresholds.VoiceRetries <= 0 {
		thresholds.VoiceRetries = 3
	}
	if thresholds.RepeatLimit <= 0 {
		thresholds.RepeatLimit = 4
	}
	return &Policy{thresholds: thresholds}
}

// Inputs carries everything the policy looks at for one turn.
type Inputs struct {
	Intent  convo.Intent
	Urgency int
	Reading sentiment.Reading
	Trend   []float64
	Effort  effort.Assessment
	Session convo.Session
}

// Decide evaluates the turn. An already latched session always comes back
// escalated, with no new reasons.
func (p *Policy) Decide(in Inputs) Decision {
	if in.Session.Escalated {
		return Decision{Escalate: true}
	}

	var reasons []string

	if in.Intent == convo.IntentHumanAgent {
		reasons = append(reasons, "customer asked for a human agent")
	}

	if in.Urgency >= p.thresholds.Urgency {
		reasons = append(reasons, "message urgency above threshold")
	}

	streak := sentiment.NegativeStreak(append(in.Trend, in.Reading.Valence), p.thresholds.StrongNegative)
	if streak >= p.thresholds.NegativeStreak {
		reasons = append(reasons, fmt.Sprintf("%d consecutive strongly negative turns", streak))
	}

	if in.Effort.Level == effort.LevelHigh && in.Session.RepeatedIntentCount(in.Intent)+1 >= p.thresholds.RepeatLimit {
		reasons = append(reasons, "high effort with the same request unresolved")
	}

	if in.Session.Channel == convo.ChannelVoice && in.Session.VoiceRetries >= p.thresholds.VoiceRetries {
		reasons = append(reasons, "repeated voice recognition failures")
	}

	if len(reasons) == 0 {
		return Decision{}
	}
	return Decision{Escalate: true, Reasons: reasons}
}

// BuildHandoff assembles the context package a human agent receives, so the
// customer never has to repeat themselves.
func (p *Policy) BuildHandoff(sess convo.Session, reference string, reasons []string) convo.HandoffPackage {
	recent := sess.RecentTurns(5)

	entities := make(map[string]string, len(sess.Entities))
	for k, v := range sess.Entities {
		entities[k] = v
	}

	return convo.HandoffPackage{
		SessionID:   sess.ID,
		Reference:   reference,
		RecentTurns: recent,
		Entities:    entities,
		Reasons:     reasons,
	}
}
