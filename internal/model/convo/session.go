package convo

import "time"

// Channel identifies the transport a turn arrived on.
type Channel string

const (
	ChannelWeb    Channel = "web"
	ChannelSMS    Channel = "sms"
	ChannelVoice  Channel = "voice"
	ChannelPhone  Channel = "phone"
	ChannelSocial Channel = "social"
	ChannelEmail  Channel = "email"
)

// Stage is the conversation state machine position. Exactly one stage is
// active per session at any time.
type Stage string

const (
	StageNew                  Stage = "new"
	StageCollectingContext    Stage = "collecting_context"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StageResolving            Stage = "resolving"
	StageResolved             Stage = "resolved"
	StageEscalated            Stage = "escalated"
)

// Intent is the classified category of what the customer wants.
type Intent string

const (
	IntentBookingChange     Intent = "booking_change"
	IntentCancellation      Intent = "cancellation"
	IntentRefund            Intent = "refund"
	IntentBaggage           Intent = "baggage"
	IntentDelayInfo         Intent = "delay_info"
	IntentDisruption        Intent = "disruption"
	IntentCompensationClaim Intent = "compensation_claim"
	IntentAccessibility     Intent = "accessibility"
	IntentComplaint         Intent = "complaint"
	IntentHumanAgent        Intent = "human_agent"
	IntentGeneralInquiry    Intent = "general_inquiry"
)

// Session is one ongoing conversation. It is owned by the session store and
// mutated only through the orchestrator's per-turn commit.
type Session struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customerId"`
	TenantID   string  `json:"tenantId"`
	Channel    Channel `json:"channel"`
	Stage      Stage   `json:"stage"`

	// Entities holds the last-known value for each extracted field.
	// Later values overwrite earlier ones unless explicitly cleared.
	Entities map[string]string `json:"entities"`

	// Turns is the bounded context window, oldest entries evicted.
	Turns []TurnRecord `json:"turns"`

	// SentimentTrend holds per-turn valence scores, bounded window.
	SentimentTrend []float64 `json:"sentimentTrend"`

	// Markers used to resolve short low-information follow-ups against the
	// previous turn instead of re-classifying from scratch.
	LastIntent      Intent   `json:"lastIntent,omitempty"`
	LastHandler     string   `json:"lastHandler,omitempty"`
	LastNextActions []string `json:"lastNextActions,omitempty"`
	PendingAction   string   `json:"pendingAction,omitempty"`

	// Escalated latches once the escalation policy fires; it is never
	// cleared by turn processing, only by an explicit external clear.
	Escalated    bool `json:"escalated"`
	VoiceRetries int  `json:"voiceRetries"`

	// NextSeq is the next expected turn sequence number for this session.
	NextSeq int64 `json:"nextSeq"`

	// Version supports the store's compare-and-swap commit.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TurnRecord captures one completed exchange.
type TurnRecord struct {
	Seq          int64      `json:"seq"`
	CustomerText string     `json:"customerText"`
	Intent       Intent     `json:"intent"`
	Confidence   float64    `json:"confidence"`
	Handler      string     `json:"handler"`
	Reply        string     `json:"reply"`
	Artifacts    []Artifact `json:"artifacts,omitempty"`
	At           time.Time  `json:"at"`
}

// Clone returns a deep copy safe to mutate outside the store lock.
func (s Session) Clone() Session {
	out := s
	if s.Entities != nil {
		out.Entities = make(map[string]string, len(s.Entities))
		for k, v := range s.Entities {
			out.Entities[k] = v
		}
	}
	if s.Turns != nil {
		out.Turns = make([]TurnRecord, len(s.Turns))
		copy(out.Turns, s.Turns)
	}
	if s.SentimentTrend != nil {
		out.SentimentTrend = make([]float64, len(s.SentimentTrend))
		copy(out.SentimentTrend, s.SentimentTrend)
	}
	if s.LastNextActions != nil {
		out.LastNextActions = make([]string, len(s.LastNextActions))
		copy(out.LastNextActions, s.LastNextActions)
	}
	return out
}

// Entity returns the last-known value for an extracted field.
func (s *Session) Entity(key string) string {
	if s.Entities == nil {
		return ""
	}
	return s.Entities[key]
}

// LastReply returns the most recent assistant reply, or "".
func (s *Session) LastReply() string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Reply != "" {
			return s.Turns[i].Reply
		}
	}
	return ""
}

// RecentTurns returns up to n most recent turn records.
func (s *Session) RecentTurns(n int) []TurnRecord {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	start := len(s.Turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]TurnRecord, len(s.Turns)-start)
	copy(out, s.Turns[start:])
	return out
}

// RepeatedIntentCount counts how many recorded turns share the given intent.
func (s *Session) RepeatedIntentCount(intent Intent) int {
	if intent == "" {
		return 0
	}
	count := 0
	for _, t := range s.Turns {
		if t.Intent == intent {
			count++
		}
	}
	return count
}
