package convo

// PlanField is one already-captured context value shown back to the customer.
type PlanField struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// CustomerPlan tells the customer what the agent can do now and what it
// still needs, per turn.
type CustomerPlan struct {
	Intent          Intent      `json:"intent"`
	Stage           Stage       `json:"stage"`
	Escalate        bool        `json:"escalate"`
	CanDoNow        []string    `json:"whatICanDoNow"`
	NeedFromYou     []string    `json:"whatINeedFromYou"`
	PreparedContext []PlanField `json:"preparedContext"`
}

// TurnResponse is the single structured result of processing one inbound
// turn. Every path through the orchestrator terminates in one of these.
type TurnResponse struct {
	SessionID  string  `json:"sessionId"`
	CustomerID string  `json:"customerId"`
	TenantID   string  `json:"tenantId"`
	Channel    Channel `json:"channel"`
	Seq        int64   `json:"seq"`

	Message string `json:"message"`
	// Spoken is the telephony-shortened version, voice channel only.
	Spoken string `json:"spoken,omitempty"`
	// Segments is the SMS-segmented version, sms channel only.
	Segments []string `json:"segments,omitempty"`

	Stage       Stage        `json:"stage"`
	Intent      Intent       `json:"intent"`
	Handler     string       `json:"handler"`
	Artifacts   []Artifact   `json:"artifacts,omitempty"`
	NextActions []string     `json:"nextActions"`
	Plan        CustomerPlan `json:"customerPlan"`
	Escalate    bool         `json:"escalate"`

	SupportReference string `json:"supportReference,omitempty"`
	// ReplacementSessionID is set when the turn itself reset the
	// conversation; subsequent turns should use it.
	ReplacementSessionID string `json:"replacementSessionId,omitempty"`
}
