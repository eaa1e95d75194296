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

const (
	pendingCancelBooking = "cancel booking"
	pendingConfirmRebook = "confirm rebooking"
)

// HandleBooking serves flight changes, cancellations, and missed-flight
// rescues. Both paths quote the outcome first and only act once the
// customer confirms.
func HandleBooking(ctx context.Context, req Request) (Result, error) {
	missed := mentionsMissedFlight(req.Text)

	ref := req.Session.Entity("bookingRef")
	if ref == "" {
		if missed {
			return missedFlightAsk(req), nil
		}
		what := "changing your flight"
		if req.Intent == convo.IntentCancellation {
			what = "cancelling your booking"
		}
		return askForBookingRef(what), nil
	}

	booking, err := req.Tools.Booking.GetBooking(ctx, ref)
	if errors.Is(err, tools.ErrBookingNotFound) {
		return Result{
			Reply:       fmt.Sprintf("I couldn't find a booking under %s. Could you double-check the reference? It's 6 characters with letters and numbers mixed.", ref),
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Re-check your booking reference"},
		}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if req.Intent == convo.IntentCancellation || req.Session.PendingAction == pendingCancelBooking {
		return handleCancellation(ctx, req, booking)
	}
	if missed && req.Session.PendingAction != pendingConfirmRebook {
		return handleMissedFlight(ctx, req, booking)
	}
	return handleRebooking(ctx, req, booking)
}

func mentionsMissedFlight(text string) bool {
	return containsAny(strings.ToLower(text), "missed my flight", "missed flight", "missed it", "no-show", "no show")
}

func sameDayUrgency(text string) bool {
	return containsAny(strings.ToLower(text), "today", "tonight", "same day", "asap", "right now")
}

// missedFlightAsk is the no-reservation rescue path: keep the customer
// moving with the published line while we wait for a reference.
func missedFlightAsk(req Request) Result {
	reply := "I'm sorry that happened; missed flights are stressful and we can usually fix them. Share your 6-character booking reference and I'll pull up rescue options."
	if sameDayUrgency(req.Text) {
		reply += " Since you need to travel today, you can also call " + req.Tenant.CallCenterPhone + " right away while you look for it."
	}
	return Result{
		Reply:       reply,
		Stage:       convo.StageCollectingContext,
		NextActions: []string{"Share your booking reference", "Call " + req.Tenant.CallCenterPhone + " if you're at the airport"},
	}
}

// handleMissedFlight acknowledges the miss and goes straight to rebooking
// options, prioritizing same-day departures when the customer asked for
// them.
func handleMissedFlight(ctx context.Context, req Request, booking tools.Booking) (Result, error) {
	res, err := handleRebooking(ctx, req, booking)
	if err != nil {
		return res, err
	}
	preamble := fmt.Sprintf("I'm sorry you missed %s; let's get you on the next one. ", booking.FlightNumber)
	if sameDayUrgency(req.Text) {
		preamble = fmt.Sprintf("I'm sorry you missed %s. You need to fly today, so these are the earliest seats I can hold. ", booking.FlightNumber)
	}
	res.Reply = preamble + res.Reply
	return res, nil
}

func handleCancellation(ctx context.Context, req Request, booking tools.Booking) (Result, error) {
	if req.Affirmed && req.Session.PendingAction == pendingCancelBooking {
		refund, err := req.Tools.Booking.CancelBooking(ctx, booking.Ref)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Reply: fmt.Sprintf("Done. Booking %s is cancelled and %s will come back to your original payment method within 7 business days.", booking.Ref, cad(refund)),
			Artifacts: []convo.Artifact{{
				Kind: convo.ArtifactRefundEstimate,
				Refund: &convo.RefundEstimate{
					BookingReference: booking.Ref,
					AmountCAD:        int(refund),
					TimelineDays:     7,
				},
			}},
			Promises: []Promise{{
				Title:  "Cancellation refund",
				Detail: fmt.Sprintf("%s back to original payment method for %s", cad(refund), booking.Ref),
				DueIn:  7 * 24 * time.Hour,
			}},
			Stage:    convo.StageResolved,
			Resolved: true,
		}, nil
	}

	refund := booking.FareCAD
	note := "Your fare is fully refundable."
	if !booking.Refundable {
		refund = booking.FareCAD * 0.15
		note = "Your fare is non-refundable, so only taxes and fees come back."
	}

	return Result{
		Reply: fmt.Sprintf("Before I cancel %s (%s on %s): %s You'd get %s back. Should I go ahead?",
			booking.Ref, booking.FlightNumber, booking.Departure.Format("Jan 2"), note, cad(refund)),
		Stage:         convo.StageAwaitingConfirmation,
		PendingAction: pendingCancelBooking,
		NextActions:   []string{"Confirm the cancellation", "Keep the booking"},
	}, nil
}

// confirmPendingRebooking completes a rebooking the customer was already
// offered, whichever handler made the offer. The second return is false
// when the message picks no option.
func confirmPendingRebooking(ctx context.Context, req Request, ref string) (Result, bool, error) {
	option := ChosenOption(req.Text)
	if option == 0 && req.Affirmed {
		option = 1
	}
	if option == 0 {
		return Result{}, false, nil
	}

	updated, err := req.Tools.Booking.ConfirmRebooking(ctx, ref, option)
	if err != nil {
		return Result{}, true, err
	}
	return Result{
		Reply: fmt.Sprintf("You're confirmed on %s (%s). The updated itinerary is on its way to your email.", updated.FlightNumber, updated.Route),
		Promises: []Promise{{
			Title:  "Updated itinerary email",
			Detail: fmt.Sprintf("itinerary for %s on %s", ref, updated.FlightNumber),
			DueIn:  time.Hour,
		}},
		Stage:    convo.StageResolved,
		Resolved: true,
	}, true, nil
}

func handleRebooking(ctx context.Context, req Request, booking tools.Booking) (Result, error) {
	if req.Session.PendingAction == pendingConfirmRebook {
		if res, ok, err := confirmPendingRebooking(ctx, req, booking.Ref); ok {
			return res, err
		}
	}

	options, err := req.Tools.Booking.RebookingOptions(ctx, booking.Ref)
	if err != nil {
		return Result{}, err
	}

	lines := make([]string, 0, len(options))
	artifactOptions := make([]convo.RebookingOption, 0, len(options))
	for _, opt := range options {
		diff := "no fare difference"
		if opt.FareDiffCAD > 0 {
			diff = cad(opt.FareDiffCAD) + " extra"
		}
		lines = append(lines, fmt.Sprintf("Option %d: %s on %s, %s", opt.Option, opt.FlightNumber, opt.Date, diff))
		artifactOptions = append(artifactOptions, convo.RebookingOption{
			Option:       opt.Option,
			FlightNumber: opt.FlightNumber,
			Route:        opt.Route,
			Date:         opt.Date,
			FareDiffCAD:  int(opt.FareDiffCAD),
		})
	}

	return Result{
		Reply: fmt.Sprintf("Here's what I can move %s to. %s. Which option works?",
			booking.Ref, strings.Join(lines, ". ")),
		Artifacts: []convo.Artifact{
			{Kind: convo.ArtifactRebookingOptions, Rebooking: artifactOptions},
			grounded("booking-api"),
		},
		Stage:         convo.StageAwaitingConfirmation,
		PendingAction: pendingConfirmRebook,
		NextActions:   []string{"Pick option 1 or 2", "Ask for other dates"},
	}, nil
}

func cad(amount float64) string {
	if amount == float64(int(amount)) {
		return fmt.Sprintf("$%d CAD", int(amount))
	}
	return fmt.Sprintf("$%.2f CAD", amount)
}
