package specialist

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"skydesk/internal/model/convo"
	"skydesk/internal/tools"
)

// claimPattern matches the claim number on the bag tag receipt, two letters
// then 6 to 10 digits, like AB1234567.
var claimPattern = regexp.MustCompile(`\b([A-Z]{2}\d{6,10})\b`)

// HandleBaggage traces a checked bag, by claim number when the customer has
// the tag receipt or by booking otherwise, and leaves them with a deadline
// they can hold us to.
func HandleBaggage(ctx context.Context, req Request) (Result, error) {
	claim := claimPattern.FindString(strings.ToUpper(req.Text))
	ref := req.Session.Entity("bookingRef")

	var identifier string
	var bag tools.BagStatus
	var err error
	switch {
	case claim != "":
		identifier = claim
		bag, err = req.Tools.Baggage.TraceClaim(ctx, claim)
	case ref != "":
		identifier = ref
		bag, err = req.Tools.Baggage.TraceBag(ctx, ref)
	default:
		return Result{
			Reply:       "I can help find your bag. Could you share the claim number from your bag tag receipt, like AB1234567? Your 6-character booking reference works too.",
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Share your claim number or booking reference"},
		}, nil
	}

	if errors.Is(err, tools.ErrBagNotFound) {
		return Result{
			Reply:       fmt.Sprintf("I don't see an open trace for %s yet, so I've opened one now. You'll get an update within 4 hours, and a case reference so you never have to re-explain this.", identifier),
			CaseKind:    "baggage",
			CaseSummary: fmt.Sprintf("bag trace opened for %s", identifier),
			Promises: []Promise{{
				Title:  "Bag trace update",
				Detail: fmt.Sprintf("first trace update for %s", identifier),
				DueIn:  4 * time.Hour,
			}},
			Stage: convo.StageResolving,
		}, nil
	}
	if err != nil {
		return Result{}, err
	}

	reply := fmt.Sprintf("Found it. Bag %s is %s, last seen at the %s.", bag.TagNumber, describeBagStatus(bag.Status), bag.LastSeen)
	if bag.Deliverable {
		reply += fmt.Sprintf(" We'll deliver it to you within %d hours; no airport trip needed.", bag.ETAHours)
	}

	return Result{
		Reply: reply,
		Artifacts: []convo.Artifact{
			{
				Kind: convo.ArtifactBaggageTrace,
				Baggage: &convo.BaggageTrace{
					ClaimNumber: bag.TagNumber,
					Status:      bag.Status,
					Note:        fmt.Sprintf("last seen at %s", bag.LastSeen),
				},
			},
			grounded("baggage-api"),
		},
		Promises: []Promise{{
			Title:  "Bag delivery",
			Detail: fmt.Sprintf("bag %s delivery for %s", bag.TagNumber, identifier),
			DueIn:  time.Duration(bag.ETAHours) * time.Hour,
		}},
		NextActions: []string{"Share a delivery address if it changed", "Ask about interim expenses"},
		Stage:       convo.StageResolving,
	}, nil
}

func describeBagStatus(status string) string {
	switch status {
	case "LOCATED":
		return "located"
	case "IN_TRANSIT":
		return "already on its way"
	case "DELIVERED":
		return "marked delivered"
	default:
		return "being traced"
	}
}
