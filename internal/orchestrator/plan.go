package orchestrator

import (
	"sort"

	"skydesk/internal/model/convo"
)

var handlerCapabilities = map[string][]string{
	"booking":       {"Look up your booking", "Offer alternative flights", "Confirm a change or cancellation"},
	"refund":        {"Quote your eligible refund", "Start the refund to your original payment method"},
	"baggage":       {"Trace your checked bag", "Arrange delivery to you"},
	"disruption":    {"Check live flight status", "Find rebooking options after a disruption"},
	"compensation":  {"Verify the delay", "Calculate and file your compensation claim"},
	"accessibility": {"Arrange assistance for your trip", "Note your needs on your file"},
	"complaint":     {"Record your complaint word for word", "Open a case with customer relations"},
	"handoff":       {"Connect you with a human agent", "Hand over everything we've covered"},
	"general":       {"Answer common questions", "Point you to the right specialist"},
}

var entityLabels = map[string]string{
	"bookingRef":    "Booking reference",
	"flightNumber":  "Flight number",
	"route":         "Route",
	"date":          "Date",
	"phone":         "Phone number",
	"email":         "Email",
	"continuedFrom": "Continued from channel",
}

// buildPlan assembles the per-turn customer plan: what the agent can do,
// what it still needs, and the context it already holds.
func buildPlan(sess convo.Session, intentLabel convo.Intent, stage convo.Stage, escalate bool, handlerName string) convo.CustomerPlan {
	plan := convo.CustomerPlan{
		Intent:   intentLabel,
		Stage:    stage,
		Escalate: escalate,
		CanDoNow: handlerCapabilities[handlerName],
	}

	if stage == convo.StageCollectingContext {
		plan.NeedFromYou = missingContext(sess, intentLabel)
	}

	keys := make([]string, 0, len(sess.Entities))
	for k := range sess.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := entityLabels[k]
		if label == "" {
			label = k
		}
		plan.PreparedContext = append(plan.PreparedContext, convo.PlanField{
			Field: k,
			Label: label,
			Value: sess.Entities[k],
		})
	}

	return plan
}

func missingContext(sess convo.Session, intentLabel convo.Intent) []string {
	var needs []string
	switch intentLabel {
	case convo.IntentBookingChange, convo.IntentCancellation, convo.IntentRefund, convo.IntentBaggage:
		if sess.Entity("bookingRef") == "" {
			needs = append(needs, "Your 6-character booking reference")
		}
	case convo.IntentDelayInfo, convo.IntentDisruption, convo.IntentCompensationClaim:
		if sess.Entity("flightNumber") == "" && sess.Entity("bookingRef") == "" {
			needs = append(needs, "Your flight number or booking reference")
		}
	default:
		needs = append(needs, "A few words on what you need help with")
	}
	return needs
}
