package specialist

import (
	"context"
	"strings"
	"time"

	"skydesk/internal/config"
	"skydesk/internal/effort"
	"skydesk/internal/model/convo"
	"skydesk/internal/tools"
)

// Request is the full turn context a handler works from. Handlers never
// mutate the session; they describe the outcome and the orchestrator
// commits it.
type Request struct {
	Text       string
	Intent     convo.Intent
	Confidence float64
	// Affirmed marks a plain confirmation of the session's pending action.
	Affirmed bool
	Session  convo.Session
	Effort   effort.Assessment
	Tools    tools.Toolset
	Tenant   config.TenantConfig
}

// Promise is a commitment a handler wants recorded in the ledger.
type Promise struct {
	Title  string
	Detail string
	DueIn  time.Duration
}

// Result is a handler's outcome for one turn.
type Result struct {
	Reply       string
	Artifacts   []convo.Artifact
	NextActions []string
	// Stage overrides the orchestrator's default transition when set.
	Stage convo.Stage
	// PendingAction names the step a later affirmation will complete.
	PendingAction string
	Promises      []Promise
	// CaseKind, when set, asks the orchestrator to mint a support
	// reference of that kind.
	CaseKind    string
	CaseSummary string
	Resolved    bool
}

// HandlerFunc processes one turn for its intent family.
type HandlerFunc func(ctx context.Context, req Request) (Result, error)

var routes = map[convo.Intent]struct {
	name string
	fn   HandlerFunc
}{
	convo.IntentBookingChange:     {"booking", HandleBooking},
	convo.IntentCancellation:      {"booking", HandleBooking},
	convo.IntentRefund:            {"refund", HandleRefund},
	convo.IntentBaggage:           {"baggage", HandleBaggage},
	convo.IntentDelayInfo:         {"disruption", HandleDisruption},
	convo.IntentDisruption:        {"disruption", HandleDisruption},
	convo.IntentCompensationClaim: {"compensation", HandleCompensation},
	convo.IntentAccessibility:     {"accessibility", HandleAccessibility},
	convo.IntentComplaint:         {"complaint", HandleComplaint},
	convo.IntentHumanAgent:        {"handoff", HandleHandoff},
	convo.IntentGeneralInquiry:    {"general", HandleGeneral},
}

// Route resolves the handler for an intent. Unknown intents fall through to
// the general handler.
func Route(intent convo.Intent) (string, HandlerFunc) {
	if r, ok := routes[intent]; ok {
		return r.name, r.fn
	}
	return "general", HandleGeneral
}

// ChosenOption parses which offered option the customer picked, 0 if none.
func ChosenOption(text string) int {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(normalized, "option 1"), strings.Contains(normalized, "option one"),
		strings.Contains(normalized, "first one"), normalized == "1":
		return 1
	case strings.Contains(normalized, "option 2"), strings.Contains(normalized, "option two"),
		strings.Contains(normalized, "second one"), normalized == "2":
		return 2
	case strings.Contains(normalized, "option 3"), strings.Contains(normalized, "option three"),
		strings.Contains(normalized, "third one"), normalized == "3":
		return 3
	default:
		return 0
	}
}

func containsAny(lower string, phrases ...string) bool {
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// askForBookingRef is the shared context-collection result for handlers
// that cannot proceed without a reservation.
func askForBookingRef(what string) Result {
	return Result{
		Reply:       "I can help with " + what + ". Could you share your 6-character booking reference? It's on your confirmation email, letters and numbers mixed, like AB12CD.",
		Stage:       convo.StageCollectingContext,
		NextActions: []string{"Share your booking reference"},
	}
}

func grounded(source string) convo.Artifact {
	return convo.Artifact{
		Kind:      convo.ArtifactGrounding,
		Grounding: &convo.Grounding{SourceBacked: true, Source: source},
	}
}
