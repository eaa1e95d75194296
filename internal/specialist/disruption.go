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

const pendingConfirmSavedFlight = "confirm saved flight"

// identifierPattern spots an explicit flight number or booking reference in
// the current message, as opposed to one remembered from earlier turns.
var identifierPattern = regexp.MustCompile(`\b(F8\d{3,4}|[A-Z0-9]{6})\b`)

const staleEntityAge = 2 * time.Hour

// HandleDisruption serves flight status questions and full disruptions.
// Status answers are always grounded in a live lookup; the reply carries
// the lookup timestamp so stale claims never pass as fresh.
func HandleDisruption(ctx context.Context, req Request) (Result, error) {
	// A rebooking offered on a previous turn resolves here too: the
	// customer picking an option rarely changes topic first.
	if req.Session.PendingAction == pendingConfirmRebook {
		if ref := req.Session.Entity("bookingRef"); ref != "" {
			if res, ok, err := confirmPendingRebooking(ctx, req, ref); ok {
				return res, err
			}
		}
	}

	flightNumber := req.Session.Entity("flightNumber")
	if res, ok := confirmStaleFlight(req, flightNumber); ok {
		return res, nil
	}
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
			Reply:       "Which flight is this about? The flight number is on your boarding pass or confirmation, like F81234. Your booking reference works too.",
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Share your flight number or booking reference"},
		}, nil
	}

	info, err := req.Tools.Flights.FlightStatus(ctx, flightNumber)
	if errors.Is(err, tools.ErrFlightNotFound) {
		return Result{
			Reply:       fmt.Sprintf("I can't find a flight %s. Could you double-check the number?", flightNumber),
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Re-check the flight number"},
		}, nil
	}
	if err != nil {
		return Result{}, err
	}

	statusArtifact := convo.Artifact{
		Kind: convo.ArtifactFlightStatus,
		FlightStatus: &convo.FlightStatus{
			FlightNumber:  info.FlightNumber,
			Status:        info.Status,
			DelayMinutes:  info.DelayMinutes,
			DepartureGate: info.DepartureGate,
			Timestamp:     info.Timestamp,
		},
	}

	switch info.Status {
	case "CANCELLED":
		return cancelledFlightResult(ctx, req, info, statusArtifact)
	case "DELAYED":
		return delayedFlightResult(req, info, statusArtifact), nil
	default:
		return Result{
			Reply: fmt.Sprintf("Good news: %s is on time, departing from gate %s as of %s.",
				info.FlightNumber, info.DepartureGate, info.Timestamp.Format("15:04 MST")),
			Artifacts: []convo.Artifact{statusArtifact, grounded("flight-status-api")},
			Stage:     convo.StageResolved,
			Resolved:  true,
		}, nil
	}
}

// confirmStaleFlight asks before acting on a flight number remembered from
// hours ago. A status question with no identifier in the current message
// against an old session is as likely a new trip as the old one.
func confirmStaleFlight(req Request, flightNumber string) (Result, bool) {
	if flightNumber == "" || req.Session.PendingAction == pendingConfirmSavedFlight {
		return Result{}, false
	}
	if !strings.Contains(strings.ToLower(req.Text), "status") {
		return Result{}, false
	}
	if identifierPattern.MatchString(strings.ToUpper(req.Text)) {
		return Result{}, false
	}
	if req.Session.UpdatedAt.IsZero() || time.Since(req.Session.UpdatedAt) <= staleEntityAge {
		return Result{}, false
	}

	return Result{
		Reply:         fmt.Sprintf("I still have flight %s from earlier in this conversation, but that was a while ago. Should I check that flight, or do you have a different flight number or booking reference?", flightNumber),
		Stage:         convo.StageAwaitingConfirmation,
		PendingAction: pendingConfirmSavedFlight,
		NextActions:   []string{"Confirm the saved flight", "Share a different flight number or booking reference"},
	}, true
}

func delayedFlightResult(req Request, info tools.FlightInfo, statusArtifact convo.Artifact) Result {
	reply := fmt.Sprintf("%s is delayed %d minutes, now departing from gate %s (checked %s).",
		info.FlightNumber, info.DelayMinutes, info.DepartureGate, info.Timestamp.Format("15:04 MST"))

	artifacts := []convo.Artifact{statusArtifact, grounded("flight-status-api")}
	next := []string{"Ask me to watch this flight for changes"}

	if amount := tools.APPRCompensationCAD(info.DelayMinutes, tools.CarrierSize(req.Tenant.CarrierSize)); amount > 0 {
		reply += fmt.Sprintf(" A delay in the %s band comes with %s compensation if the cause was within our control; I can start that claim for you.",
			tools.APPRTierLabel(info.DelayMinutes), cad(amount))
		next = append(next, "Start the compensation claim")
	} else {
		reply += " That's under the 3-hour mark where regulated compensation starts, but I'll flag it if the delay grows."
	}

	if req.Intent == convo.IntentDisruption {
		next = append(next, "Ask for rebooking options")
	}

	return Result{
		Reply:       reply,
		Artifacts:   artifacts,
		NextActions: next,
		Stage:       convo.StageResolving,
	}
}

func cancelledFlightResult(ctx context.Context, req Request, info tools.FlightInfo, statusArtifact convo.Artifact) (Result, error) {
	reply := fmt.Sprintf("%s has been cancelled. I'm sorry; let's get you moving again.", info.FlightNumber)
	artifacts := []convo.Artifact{statusArtifact, grounded("flight-status-api")}

	ref := req.Session.Entity("bookingRef")
	if ref == "" {
		return Result{
			Reply:       reply + " Share your booking reference and I'll pull up rebooking options right away.",
			Artifacts:   artifacts,
			Stage:       convo.StageCollectingContext,
			NextActions: []string{"Share your booking reference"},
		}, nil
	}

	options, err := req.Tools.Booking.RebookingOptions(ctx, ref)
	if err != nil {
		return Result{
			Reply:       reply + " I'm having trouble reaching the booking system for alternatives; give me a moment and try again, or I can hand you to an agent.",
			Artifacts:   artifacts,
			Stage:       convo.StageResolving,
			NextActions: []string{"Try again", "Ask for a human agent"},
		}, nil
	}

	artifactOptions := make([]convo.RebookingOption, 0, len(options))
	for _, opt := range options {
		reply += fmt.Sprintf(" Option %d: %s on %s.", opt.Option, opt.FlightNumber, opt.Date)
		artifactOptions = append(artifactOptions, convo.RebookingOption{
			Option:       opt.Option,
			FlightNumber: opt.FlightNumber,
			Route:        opt.Route,
			Date:         opt.Date,
			FareDiffCAD:  int(opt.FareDiffCAD),
		})
	}
	reply += " Rebooking after a cancellation is free, and meal and hotel care applies while you wait. Which option works?"

	artifacts = append(artifacts, convo.Artifact{Kind: convo.ArtifactRebookingOptions, Rebooking: artifactOptions})
	return Result{
		Reply:         reply,
		Artifacts:     artifacts,
		Stage:         convo.StageAwaitingConfirmation,
		PendingAction: pendingConfirmRebook,
		NextActions:   []string{"Pick option 1 or 2", "Ask about a full refund instead"},
	}, nil
}
