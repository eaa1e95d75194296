package intent

import (
	"regexp"
	"strings"

	"skydesk/internal/model/convo"
)

// Result is the classification outcome for one customer message.
type Result struct {
	Intent     convo.Intent
	Confidence float64
	Entities   map[string]string
	Urgency    int
	// CarriedOver marks that a short follow-up inherited the previous
	// turn's intent instead of being classified on its own words.
	CarriedOver bool
}

// Context carries the session-side signals the extractor may lean on when
// the message itself is too thin to classify.
type Context struct {
	LastIntent    convo.Intent
	LastStage     convo.Stage
	KnownEntities map[string]string
}

var keywordBuckets = map[convo.Intent][]string{
	convo.IntentBookingChange: {
		"rebook", "re-book", "rebooking", "change my flight", "change flight", "change my booking",
		"move my flight", "different flight", "earlier flight", "later flight", "switch flight",
		"reschedule", "next available", "missed my flight", "missed flight", "no-show",
	},
	convo.IntentCancellation: {
		"cancel my", "cancellation", "cancel the booking", "cancel booking", "cancel flight",
		"don't want to fly", "do not want to fly", "call off",
	},
	convo.IntentRefund: {
		"refund", "money back", "reimburse", "reimbursement", "charge back", "chargeback",
		"get my money", "credit back", "travel credit", "unauthorized charge", "duplicate charge",
		"charged twice", "charge issue", "billing issue", "payment issue",
	},
	convo.IntentBaggage: {
		"bag", "bags", "baggage", "luggage", "suitcase", "lost my bag", "missing bag",
		"delayed bag", "carousel", "checked bag",
	},
	convo.IntentDelayInfo: {
		"delayed", "delay", "on time", "on-time", "status of", "flight status", "is my flight",
		"departure time", "when does", "gate", "boarding",
	},
	convo.IntentDisruption: {
		"cancelled my flight", "flight was cancelled", "flight got cancelled", "flight is cancelled",
		"missed my connection", "missed connection", "stranded", "stuck at the airport",
		"overnight", "diverted", "weather",
	},
	convo.IntentCompensationClaim: {
		"compensation", "compensate", "appr", "passenger rights", "entitled to", "claim",
		"owed", "voucher for the delay",
	},
	convo.IntentAccessibility: {
		"wheelchair", "accessibility", "mobility", "assistance boarding", "special assistance",
		"service animal", "hearing", "visually impaired", "medical device", "oxygen",
	},
	convo.IntentComplaint: {
		"complaint", "complain", "terrible", "awful", "worst", "unacceptable", "disgusted",
		"rude", "never flying", "horrible experience", "file a complaint",
	},
	convo.IntentHumanAgent: {
		"human", "real person", "agent", "representative", "speak to someone", "talk to someone",
		"supervisor", "manager", "operator", "live person",
	},
}

// Phrases that mean "do it" or "that one" rather than a new request. They
// resolve against the previous turn's pending action.
var affirmations = []string{
	"yes", "yes please", "yep", "yeah", "ok", "okay", "sure", "confirm", "confirmed",
	"do it", "go ahead", "that works", "sounds good", "please do", "option 1", "option 2",
	"option one", "option two", "the first one", "the second one",
}

var urgencyWords = map[string]int{
	"urgent":            3,
	"asap":              3,
	"immediately":       3,
	"right now":         3,
	"emergency":         4,
	"stranded":          4,
	"at the airport":    2,
	"boarding soon":     3,
	"tonight":           2,
	"today":             1,
	"missed connection": 3,
	"wheelchair":        2,
}

var (
	// Flight numbers are a carrier code and 3-5 digits. The carrier code is
	// either two letters or the letter-digit F8 code, so "F81234" extracts
	// as a flight and never as a booking reference.
	flightPattern = regexp.MustCompile(`\b(F8|[A-Z]{2})\s?(\d{3,5})\b`)
	// Booking references are 6 alphanumerics; requiring both a letter and
	// a digit keeps plain words like REFUND from matching.
	bookingPattern = regexp.MustCompile(`\b[A-Z0-9]{6}\b`)
	routePattern   = regexp.MustCompile(`\b([A-Z]{3})\s*(?:-|->|to|TO)\s*([A-Z]{3})\b`)
	datePattern    = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?)\b`)
	phonePattern   = regexp.MustCompile(`\b1?-?\d{3}-\d{3}-\d{4}\b`)
	emailPattern   = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)

	hasLetter = regexp.MustCompile(`[A-Z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

var flightStopwords = map[string]bool{
	"ON": true, "AT": true, "IN": true, "TO": true, "OF": true, "OR": true,
	"BY": true, "MY": true, "AM": true, "PM": true, "NO": true, "AN": true,
	"IS": true, "IT": true, "SO": true, "IF": true,
}

// Extract classifies a customer message and pulls out structured entities.
// It never fails; an unmatchable message comes back as a low-confidence
// general inquiry.
func Extract(text string, sctx Context) Result {
	normalized := strings.ToLower(strings.TrimSpace(text))
	result := Result{
		Intent:   convo.IntentGeneralInquiry,
		Entities: extractEntities(text),
		Urgency:  scoreUrgency(text, normalized),
	}

	if normalized == "" {
		result.Confidence = 0.1
		return result
	}

	scores := make(map[convo.Intent]int)
	for intent, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[intent] += 3
			}
		}
	}

	// "cancelled my flight" reads as a disruption done to the customer,
	// not a cancellation request by them.
	if scores[convo.IntentDisruption] > 0 && scores[convo.IntentCancellation] > 0 {
		scores[convo.IntentCancellation] = 0
	}

	best := convo.IntentGeneralInquiry
	bestScore := 0
	for intent, score := range scores {
		if score > bestScore || (score == bestScore && intentPriority(intent) > intentPriority(best)) {
			best = intent
			bestScore = score
		}
	}

	if bestScore > 0 {
		result.Intent = best
		result.Confidence = confidenceFor(bestScore)
		return result
	}

	// No keyword hit. Short messages lean on the previous turn.
	if isShortFollowUp(normalized) && sctx.LastIntent != "" {
		result.Intent = sctx.LastIntent
		result.Confidence = 0.6
		result.CarriedOver = true
		return result
	}

	result.Confidence = 0.3
	return result
}

// IsAffirmation reports whether the message is a plain confirmation of a
// previously proposed action.
func IsAffirmation(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Trim(normalized, ".!")
	for _, phrase := range affirmations {
		if normalized == phrase {
			return true
		}
	}
	return false
}

func confidenceFor(score int) float64 {
	conf := 0.55 + float64(score)*0.05
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

// intentPriority breaks score ties toward the more specific intent so that
// "refund for my cancelled flight" resolves to the actionable request.
func intentPriority(intent convo.Intent) int {
	switch intent {
	case convo.IntentHumanAgent:
		return 10
	case convo.IntentAccessibility:
		return 9
	case convo.IntentDisruption:
		return 8
	case convo.IntentCompensationClaim:
		return 7
	case convo.IntentRefund:
		return 6
	case convo.IntentCancellation:
		return 5
	case convo.IntentBookingChange:
		return 4
	case convo.IntentBaggage:
		return 3
	case convo.IntentDelayInfo:
		return 2
	case convo.IntentComplaint:
		return 1
	default:
		return 0
	}
}

func isShortFollowUp(normalized string) bool {
	if len(normalized) > 40 {
		return false
	}
	return len(strings.Fields(normalized)) <= 4
}

func scoreUrgency(raw, normalized string) int {
	urgency := 0
	for word, weight := range urgencyWords {
		if strings.Contains(normalized, word) {
			urgency += weight
		}
	}
	if n := strings.Count(raw, "!"); n > 1 {
		urgency += n - 1
	}
	if urgency > 10 {
		urgency = 10
	}
	return urgency
}

func extractEntities(text string) map[string]string {
	entities := make(map[string]string)
	upper := strings.ToUpper(text)

	for _, m := range flightPattern.FindAllStringSubmatch(upper, -1) {
		// A two-letter English word before digits is prose ("on 2026"),
		// not a carrier code.
		if flightStopwords[m[1]] {
			continue
		}
		entities["flightNumber"] = m[1] + m[2]
		break
	}

	// Take the most recent token that validates; earlier mentions are
	// more likely to be stale or misread.
	for _, candidate := range bookingPattern.FindAllString(upper, -1) {
		if ValidBookingRef(candidate) {
			entities["bookingRef"] = candidate
		}
	}

	// Route codes must be typed in caps, so match against the raw text to
	// keep ordinary words from pairing up.
	if m := routePattern.FindStringSubmatch(text); m != nil {
		entities["route"] = m[1] + "-" + m[2]
	}
	if m := datePattern.FindString(text); m != "" {
		entities["date"] = m
	}
	if m := phonePattern.FindString(text); m != "" {
		entities["phone"] = m
	}
	if m := emailPattern.FindString(text); m != "" {
		entities["email"] = m
	}

	if len(entities) == 0 {
		return nil
	}
	return entities
}

// ValidBookingRef reports whether a token can be a booking reference: six
// alphanumerics containing at least one letter and one digit, and not
// shaped like a flight number.
func ValidBookingRef(token string) bool {
	token = strings.ToUpper(strings.TrimSpace(token))
	if len(token) != 6 {
		return false
	}
	if !bookingPattern.MatchString(token) {
		return false
	}
	if !hasLetter.MatchString(token) || !hasDigit.MatchString(token) {
		return false
	}
	if flightPattern.MatchString(token) {
		return false
	}
	return true
}
