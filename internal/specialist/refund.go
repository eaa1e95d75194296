package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skydesk/internal/model/convo"
	"skydesk/internal/tools"
)

const pendingConfirmRefund = "confirm refund"

const refundTimelineDays = 5

// Travel credit pays out more than the cash it replaces.
const travelCreditBonusPercent = 15

// HandleRefund quotes the eligible amount first and only moves money after
// an explicit confirmation. High-effort sessions skip the quote step when
// the amount is unambiguous. Charge disputes and travel-credit requests
// branch off before any money moves.
func HandleRefund(ctx context.Context, req Request) (Result, error) {
	lower := strings.ToLower(req.Text)
	if res, ok := chargeIssueResult(lower); ok {
		return res, nil
	}

	ref := req.Session.Entity("bookingRef")
	if ref == "" {
		return askForBookingRef("your refund"), nil
	}

	booking, err := req.Tools.Booking.GetBooking(ctx, ref)
	if errors.Is(err, tools.ErrBookingNotFound) {
		return Result{
			Reply:       fmt.Sprintf("I couldn't find a booking under %s. Could you double-check the reference?", ref),
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Re-check your booking reference"},
		}, nil
	}
	if err != nil {
		return Result{}, err
	}

	amount := booking.FareCAD
	explanation := "your fare is fully refundable"
	if !booking.Refundable {
		amount = booking.FareCAD * 0.15
		explanation = "your fare is non-refundable, so taxes and fees are what I can return"
	}

	if strings.Contains(lower, "credit") && !strings.Contains(lower, "refund") {
		return issueTravelCredit(ctx, req, booking, amount)
	}

	confirmed := req.Affirmed && req.Session.PendingAction == pendingConfirmRefund
	if confirmed || (req.Effort.FastPathActive && booking.Refundable) {
		confirmation, err := req.Tools.Payment.IssueRefund(ctx, booking.Ref, amount)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Reply: fmt.Sprintf("Your refund of %s is in motion, confirmation %s. It reaches your original payment method within %d business days and you'll get an email the moment it's sent.",
				cad(amount), confirmation, refundTimelineDays),
			Artifacts: []convo.Artifact{{
				Kind: convo.ArtifactRefundConfirmation,
				RefundResult: &convo.RefundConfirmation{
					BookingReference: booking.Ref,
					RefundID:         confirmation,
					AmountCAD:        int(amount),
					PaymentMethod:    "original payment method",
					Status:           "initiated",
				},
			}},
			Promises: []Promise{{
				Title:  "Refund confirmation",
				Detail: fmt.Sprintf("%s refund %s for %s", cad(amount), confirmation, booking.Ref),
				DueIn:  refundTimelineDays * 24 * time.Hour,
			}},
			Stage:    convo.StageResolved,
			Resolved: true,
		}, nil
	}

	return Result{
		Reply: fmt.Sprintf("For booking %s, %s: %s within %d business days. Want me to start it?",
			booking.Ref, explanation, cad(amount), refundTimelineDays),
		Artifacts: []convo.Artifact{{
			Kind: convo.ArtifactRefundEstimate,
			Refund: &convo.RefundEstimate{
				BookingReference: booking.Ref,
				AmountCAD:        int(amount),
				TimelineDays:     refundTimelineDays,
			},
		}},
		Stage:         convo.StageAwaitingConfirmation,
		PendingAction: pendingConfirmRefund,
		NextActions:   []string{"Confirm the refund", "Ask about travel credit instead"},
	}, nil
}

// issueTravelCredit converts the eligible amount into a voucher with a
// bonus on top. Credit never touches the original payment method, so it
// needs no confirmation step.
func issueTravelCredit(ctx context.Context, req Request, booking tools.Booking, amount float64) (Result, error) {
	base := int(amount)
	bonus := base * travelCreditBonusPercent / 100
	total := base + bonus

	creditID, err := req.Tools.Payment.IssueTravelCredit(ctx, req.Session.CustomerID, float64(total))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Reply: fmt.Sprintf("Done: travel credit %s worth %s is on your account and ready to use, that's your %s plus a %d%% bonus of %s for choosing credit. It never expires on our watch.",
			creditID, cad(float64(total)), cad(float64(base)), travelCreditBonusPercent, cad(float64(bonus))),
		Artifacts: []convo.Artifact{{
			Kind: convo.ArtifactTravelCredit,
			TravelCredit: &convo.TravelCredit{
				CustomerID: req.Session.CustomerID,
				BaseCAD:    base,
				BonusCAD:   bonus,
				TotalCAD:   total,
				Status:     "issued",
			},
		}},
		Promises: []Promise{{
			Title:  "Travel credit confirmation",
			Detail: fmt.Sprintf("%s credit %s for booking %s", cad(float64(total)), creditID, booking.Ref),
			DueIn:  time.Hour,
		}},
		Stage:    convo.StageResolved,
		Resolved: true,
	}, nil
}

// chargeIssueResult triages billing disputes the way the payments team
// wants them: suspected fraud goes to the bank first, duplicates go to
// evidence collection, and a vague charge complaint gets narrowed down.
func chargeIssueResult(lower string) (Result, bool) {
	switch {
	case containsAny(lower, "unauthorized charge", "unauthorised charge", "fraud charge", "fraudulent charge", "didn't authorize", "did not authorize"):
		return Result{
			Reply:       "If you suspect an unauthorized charge, contact your bank or card issuer first so they can protect the card. Once that's underway, share your booking reference or the transaction details and I'll open the investigation on our side.",
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Contact your bank or card issuer", "Share the booking reference or transaction details"},
		}, true
	case containsAny(lower, "duplicate charge", "charged twice", "double charged", "incorrect charge", "wrong amount"):
		return Result{
			Reply:       "I can sort that out. Share your booking reference, or the transaction date, amount, and the last 4 digits of the card, and I'll trace the duplicate without you having to call anyone.",
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Share the booking reference or transaction details"},
		}, true
	case containsAny(lower, "charge issue", "billing issue", "payment issue", "problem with a charge"):
		return Result{
			Reply:       "I can help with a charge problem. Is this an unauthorized charge, a duplicate charge, or an amount that looks wrong?",
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Say which kind of charge problem this is"},
		}, true
	}
	return Result{}, false
}
