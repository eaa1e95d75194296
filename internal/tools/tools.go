package tools

import (
	"context"
	"errors"
	"time"
)

var (
	ErrToolUnavailable = errors.New("tool unavailable")
	ErrBookingNotFound = errors.New("booking not found")
	ErrFlightNotFound  = errors.New("flight not found")
	ErrBagNotFound     = errors.New("bag not found")
)

// Booking is a reservation as the booking system reports it.
type Booking struct {
	Ref          string    `json:"ref"`
	CustomerID   string    `json:"customerId"`
	FlightNumber string    `json:"flightNumber"`
	Route        string    `json:"route"`
	Departure    time.Time `json:"departure"`
	FareCAD      float64   `json:"fareCad"`
	Refundable   bool      `json:"refundable"`
	Cabin        string    `json:"cabin"`
}

// RebookingOption is one alternative flight offered during a change.
type RebookingOption struct {
	Option       int     `json:"option"`
	FlightNumber string  `json:"flightNumber"`
	Route        string  `json:"route"`
	Date         string  `json:"date"`
	FareDiffCAD  float64 `json:"fareDiffCad"`
}

// FlightInfo is a point-in-time flight status.
type FlightInfo struct {
	FlightNumber  string    `json:"flightNumber"`
	Status        string    `json:"status"`
	DelayMinutes  int       `json:"delayMinutes"`
	DepartureGate string    `json:"departureGate"`
	Route         string    `json:"route"`
	Timestamp     time.Time `json:"timestamp"`
}

// BagStatus is a baggage trace result.
type BagStatus struct {
	TagNumber   string `json:"tagNumber"`
	Status      string `json:"status"`
	LastSeen    string `json:"lastSeen"`
	ETAHours    int    `json:"etaHours"`
	Deliverable bool   `json:"deliverable"`
}

// CustomerProfile is the CRM view of a customer.
type CustomerProfile struct {
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
	Tier       string `json:"tier"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// BookingAPI exposes reservation lookups and mutations.
type BookingAPI interface {
	GetBooking(ctx context.Context, ref string) (Booking, error)
	RebookingOptions(ctx context.Context, ref string) ([]RebookingOption, error)
	ConfirmRebooking(ctx context.Context, ref string, option int) (Booking, error)
	CancelBooking(ctx context.Context, ref string) (refundCAD float64, err error)
}

// FlightStatusAPI exposes live flight status.
type FlightStatusAPI interface {
	FlightStatus(ctx context.Context, flightNumber string) (FlightInfo, error)
}

// PaymentAPI issues refunds and travel credits.
type PaymentAPI interface {
	IssueRefund(ctx context.Context, bookingRef string, amountCAD float64) (confirmation string, err error)
	IssueTravelCredit(ctx context.Context, customerID string, amountCAD float64) (creditID string, err error)
}

// CRM exposes customer profiles and case notes.
type CRM interface {
	GetCustomer(ctx context.Context, customerID string) (CustomerProfile, error)
	AppendCaseNote(ctx context.Context, customerID, note string) error
}

// BaggageAPI traces checked bags, by the booking they travelled on or by
// the claim number printed on the bag tag receipt.
type BaggageAPI interface {
	TraceBag(ctx context.Context, bookingRef string) (BagStatus, error)
	TraceClaim(ctx context.Context, claimNumber string) (BagStatus, error)
}

// SMSGateway delivers outbound text messages.
type SMSGateway interface {
	Send(ctx context.Context, phone, body string) error
}

// Toolset bundles every external dependency a specialist may call.
type Toolset struct {
	Booking BookingAPI
	Flights FlightStatusAPI
	Payment PaymentAPI
	CRM     CRM
	Baggage BaggageAPI
	SMS     SMSGateway
}
