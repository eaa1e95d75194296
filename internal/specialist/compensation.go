package specialist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skydesk/internal/model/convo"
	"skydesk/internal/tools"
)

const pendingConfirmClaim = "file compensation claim"

// HandleCompensation estimates the regulated entitlement from the live
// delay and files the claim once the customer confirms.
func HandleCompensation(ctx context.Context, req Request) (Result, error) {
	flightNumber := req.Session.Entity("flightNumber")
	if flightNumber == "" {
		if ref := req.Session.Entity("bookingRef"); ref != "" {
			booking, err := req.Tools.Booking.GetBooking(ctx, ref)
			if err == nil {
				flightNumber = booking.FlightNumber
			}
		}
	}
	if flightNumber == "" {
		return Result{
			Reply:       "I can check what you're entitled to. Which flight was affected? The flight number or your booking reference works.",
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Share the flight number or booking reference"},
		}, nil
	}

	info, err := req.Tools.Flights.FlightStatus(ctx, flightNumber)
	if errors.Is(err, tools.ErrFlightNotFound) {
		return Result{
			Reply:       fmt.Sprintf("I can't find flight %s to verify the delay. Could you double-check the number?", flightNumber),
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Re-check the flight number"},
		}, nil
	}
	if err != nil {
		return Result{}, err
	}

	carrier := tools.CarrierSize(req.Tenant.CarrierSize)
	amount := tools.APPRCompensationCAD(info.DelayMinutes, carrier)
	if amount == 0 {
		return Result{
			Reply: fmt.Sprintf("Flight %s shows a %d-minute delay, which sits under the 3-hour threshold where regulated compensation starts. If the delay grows past 3 hours you'd be owed %s, and I'll have the verified numbers here when it does.",
				info.FlightNumber, info.DelayMinutes, cad(tools.APPRCompensationCAD(3*60, carrier))),
			Artifacts: []convo.Artifact{grounded("flight-status-api")},
			Stage:     convo.StageResolved,
			Resolved:  true,
		}, nil
	}

	estimate := convo.Artifact{
		Kind: convo.ArtifactCompensationEstimate,
		Compensation: &convo.CompensationEstimate{
			AmountCAD:         int(amount),
			Currency:          "CAD",
			RegulationSection: tools.APPRRegulationSection(info.DelayMinutes, carrier),
			Breakdown:         fmt.Sprintf("delay of %d minutes falls in the %s band", info.DelayMinutes, tools.APPRTierLabel(info.DelayMinutes)),
		},
	}

	if req.Affirmed && req.Session.PendingAction == pendingConfirmClaim {
		if err := req.Tools.CRM.AppendCaseNote(ctx, req.Session.CustomerID,
			fmt.Sprintf("compensation claim filed: %s, flight %s, %d minute delay", cad(amount), info.FlightNumber, info.DelayMinutes)); err != nil {
			return Result{}, err
		}
		return Result{
			Reply:     fmt.Sprintf("Your claim for %s is filed. Decisions are due within 30 days and you'll hear from us by email; you don't need to chase this.", cad(amount)),
			Artifacts: []convo.Artifact{estimate},
			Promises: []Promise{{
				Title:  "Compensation claim decision",
				Detail: fmt.Sprintf("%s claim for flight %s", cad(amount), info.FlightNumber),
				DueIn:  30 * 24 * time.Hour,
			}},
			CaseKind:    "compensation",
			CaseSummary: fmt.Sprintf("%s APPR claim, flight %s", cad(amount), info.FlightNumber),
			Stage:       convo.StageResolved,
			Resolved:    true,
		}, nil
	}

	return Result{
		Reply: fmt.Sprintf("Based on the verified %d-minute delay of %s, you're entitled to %s under the passenger protection rules (%s band). Want me to file the claim now?",
			info.DelayMinutes, info.FlightNumber, cad(amount), tools.APPRTierLabel(info.DelayMinutes)),
		Artifacts:     []convo.Artifact{estimate, grounded("flight-status-api")},
		Stage:         convo.StageAwaitingConfirmation,
		PendingAction: pendingConfirmClaim,
		NextActions:   []string{"File the claim", "Ask how the amount is calculated"},
	}, nil
}
