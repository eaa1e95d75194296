package specialist

import (
	"context"
	"fmt"
	"strings"

	"skydesk/internal/model/convo"
)

var faqAnswers = []struct {
	keywords []string
	answer   string
}{
	{
		keywords: []string{"carry-on", "carry on", "cabin bag", "hand luggage"},
		answer:   "One carry-on up to 10 kg plus a personal item flies free on every fare. Checked bag allowance depends on your fare class; share your booking reference and I'll check yours.",
	},
	{
		keywords: []string{"check-in", "check in", "how early"},
		answer:   "Online check-in opens 24 hours before departure. At the airport, bag drop closes 45 minutes before domestic flights and 60 minutes before international ones.",
	},
	{
		keywords: []string{"pet", "dog", "cat"},
		answer:   "Small pets travel in the cabin in an approved carrier for a $50 CAD fee each way. Book it at least 48 hours before departure so we can hold the spot.",
	},
	{
		keywords: []string{"seat", "seating", "window", "aisle"},
		answer:   "You can pick a seat any time before check-in. Standard seats are free at check-in; advance selection starts at $12 CAD.",
	},
	{
		keywords: []string{"wifi", "wi-fi", "internet"},
		answer:   "Wi-Fi is available on most of the fleet from gate to gate. Messaging is free; streaming plans start at $8 CAD.",
	},
}

// HandleGeneral answers common questions and, when it has nothing solid,
// says so and offers paths rather than guessing.
func HandleGeneral(_ context.Context, req Request) (Result, error) {
	normalized := strings.ToLower(req.Text)

	for _, faq := range faqAnswers {
		for _, keyword := range faq.keywords {
			if strings.Contains(normalized, keyword) {
				return Result{
					Reply:    faq.answer,
					Stage:    convo.StageResolved,
					Resolved: true,
				}, nil
			}
		}
	}

	reply := "I want to point you in the right direction rather than guess."
	if req.Confidence < 0.45 {
		reply = "I'm not completely sure what you need yet, and I'd rather ask than guess."
	}
	reply += " I can check flight status, change or cancel bookings, trace bags, start refunds or compensation claims, or get you to a human."
	if req.Tenant.ContactPageURL != "" {
		reply += fmt.Sprintf(" Everything else lives at %s.", req.Tenant.ContactPageURL)
	}

	return Result{
		Reply: reply,
		Stage: convo.StageCollectingContext,
		NextActions: []string{
			"Tell me which of those fits",
			"Ask for a human agent any time",
		},
	}, nil
}
