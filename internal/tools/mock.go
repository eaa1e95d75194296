package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockToolset builds the in-memory tool implementations with demo seed
// data. Every mock supports an outage switch so degraded paths can be
// exercised without a real backend.
func MockToolset() Toolset {
	return Toolset{
		Booking: NewMockBookingAPI(),
		Flights: NewMockFlightStatusAPI(),
		Payment: NewMockPaymentAPI(),
		CRM:     NewMockCRM(),
		Baggage: NewMockBaggageAPI(),
		SMS:     NewMockSMSGateway(),
	}
}

type outage struct {
	mu   sync.RWMutex
	down bool
}

// SetDown toggles the simulated outage.
func (o *outage) SetDown(down bool) {
	o.mu.Lock()
	o.down = down
	o.mu.Unlock()
}

func (o *outage) check() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.down {
		return ErrToolUnavailable
	}
	return nil
}

// MockBookingAPI serves bookings from memory.
type MockBookingAPI struct {
	outage
	mu       sync.RWMutex
	bookings map[string]Booking
}

func NewMockBookingAPI() *MockBookingAPI {
	departure := time.Now().UTC().Add(26 * time.Hour).Truncate(time.Hour)
	return &MockBookingAPI{
		bookings: map[string]Booking{
			"AB12CD": {
				Ref:          "AB12CD",
				CustomerID:   "cust-1",
				FlightNumber: "F81234",
				Route:        "YYC-YVR",
				Departure:    departure,
				FareCAD:      289.00,
				Refundable:   false,
				Cabin:        "economy",
			},
			"ZX98YQ": {
				Ref:          "ZX98YQ",
				CustomerID:   "cust-2",
				FlightNumber: "F84321",
				Route:        "YVR-YYC",
				Departure:    departure.Add(8 * time.Hour),
				FareCAD:      412.50,
				Refundable:   true,
				Cabin:        "economy-flex",
			},
		},
	}
}

func (m *MockBookingAPI) GetBooking(ctx context.Context, ref string) (Booking, error) {
	if err := m.check(); err != nil {
		return Booking{}, err
	}
	if err := ctx.Err(); err != nil {
		return Booking{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[strings.ToUpper(ref)]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return booking, nil
}

func (m *MockBookingAPI) RebookingOptions(ctx context.Context, ref string) ([]RebookingOption, error) {
	booking, err := m.GetBooking(ctx, ref)
	if err != nil {
		return nil, err
	}

	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	dayAfter := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02")
	return []RebookingOption{
		{Option: 1, FlightNumber: "F81240", Route: booking.Route, Date: tomorrow, FareDiffCAD: 0},
		{Option: 2, FlightNumber: "F81250", Route: booking.Route, Date: dayAfter, FareDiffCAD: 35.00},
	}, nil
}

func (m *MockBookingAPI) ConfirmRebooking(ctx context.Context, ref string, option int) (Booking, error) {
	options, err := m.RebookingOptions(ctx, ref)
	if err != nil {
		return Booking{}, err
	}

	var chosen *RebookingOption
	for i := range options {
		if options[i].Option == option {
			chosen = &options[i]
			break
		}
	}
	if chosen == nil {
		return Booking{}, fmt.Errorf("rebooking option %d not offered for %s", option, ref)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	booking := m.bookings[strings.ToUpper(ref)]
	booking.FlightNumber = chosen.FlightNumber
	booking.FareCAD += chosen.FareDiffCAD
	m.bookings[strings.ToUpper(ref)] = booking
	return booking, nil
}

func (m *MockBookingAPI) CancelBooking(ctx context.Context, ref string) (float64, error) {
	booking, err := m.GetBooking(ctx, ref)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	delete(m.bookings, strings.ToUpper(ref))
	m.mu.Unlock()

	if booking.Refundable {
		return booking.FareCAD, nil
	}
	// Non-refundable fares return taxes and fees only.
	return booking.FareCAD * 0.15, nil
}

// MockFlightStatusAPI serves flight status from memory and allows status
// updates so disruption flows can be driven in tests and demos.
type MockFlightStatusAPI struct {
	outage
	mu      sync.RWMutex
	flights map[string]FlightInfo
}

func NewMockFlightStatusAPI() *MockFlightStatusAPI {
	return &MockFlightStatusAPI{
		flights: map[string]FlightInfo{
			"F81234": {FlightNumber: "F81234", Status: "DELAYED", DelayMinutes: 47, DepartureGate: "B12", Route: "YYC-YVR"},
			"F84321": {FlightNumber: "F84321", Status: "ON_TIME", DelayMinutes: 0, DepartureGate: "C03", Route: "YVR-YYC"},
		},
	}
}

func (m *MockFlightStatusAPI) FlightStatus(ctx context.Context, flightNumber string) (FlightInfo, error) {
	if err := m.check(); err != nil {
		return FlightInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return FlightInfo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.flights[strings.ToUpper(flightNumber)]
	if !ok {
		return FlightInfo{}, ErrFlightNotFound
	}
	info.Timestamp = time.Now().UTC()
	return info, nil
}

// SetStatus replaces a flight's status entry.
func (m *MockFlightStatusAPI) SetStatus(info FlightInfo) {
	m.mu.Lock()
	m.flights[strings.ToUpper(info.FlightNumber)] = info
	m.mu.Unlock()
}

// MockPaymentAPI records issued refunds and credits.
type MockPaymentAPI struct {
	outage
	mu      sync.Mutex
	refunds map[string]float64
	credits map[string]float64
}

func NewMockPaymentAPI() *MockPaymentAPI {
	return &MockPaymentAPI{
		refunds: make(map[string]float64),
		credits: make(map[string]float64),
	}
}

func (m *MockPaymentAPI) IssueRefund(ctx context.Context, bookingRef string, amountCAD float64) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	confirmation := "RFD-" + strings.ToUpper(uuid.NewString()[:8])
	m.mu.Lock()
	m.refunds[confirmation] = amountCAD
	m.mu.Unlock()
	return confirmation, nil
}

func (m *MockPaymentAPI) IssueTravelCredit(ctx context.Context, customerID string, amountCAD float64) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	creditID := "TC-" + strings.ToUpper(uuid.NewString()[:8])
	m.mu.Lock()
	m.credits[creditID] = amountCAD
	m.mu.Unlock()
	return creditID, nil
}

// MockCRM serves customer profiles from memory.
type MockCRM struct {
	outage
	mu        sync.Mutex
	customers map[string]CustomerProfile
	caseNotes map[string][]string
}

func NewMockCRM() *MockCRM {
	return &MockCRM{
		customers: map[string]CustomerProfile{
			"cust-1": {CustomerID: "cust-1", Name: "Dana Whitfield", Tier: "silver", Phone: "1-587-555-0144", Email: "dana.whitfield@example.com"},
			"cust-2": {CustomerID: "cust-2", Name: "Marcus Oyelaran", Tier: "none", Phone: "1-604-555-0199", Email: "m.oyelaran@example.com"},
		},
		caseNotes: make(map[string][]string),
	}
}

func (m *MockCRM) GetCustomer(ctx context.Context, customerID string) (CustomerProfile, error) {
	if err := m.check(); err != nil {
		return CustomerProfile{}, err
	}
	if err := ctx.Err(); err != nil {
		return CustomerProfile{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.customers[customerID]
	if !ok {
		// Unknown customers still get served; the profile is just thin.
		return CustomerProfile{CustomerID: customerID, Tier: "none"}, nil
	}
	return profile, nil
}

func (m *MockCRM) AppendCaseNote(_ context.Context, customerID, note string) error {
	if err := m.check(); err != nil {
		return err
	}

	m.mu.Lock()
	m.caseNotes[customerID] = append(m.caseNotes[customerID], note)
	m.mu.Unlock()
	return nil
}

// CaseNotes returns recorded notes for assertions.
func (m *MockCRM) CaseNotes(customerID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := make([]string, len(m.caseNotes[customerID]))
	copy(notes, m.caseNotes[customerID])
	return notes
}

// MockBaggageAPI serves bag traces from memory.
type MockBaggageAPI struct {
	outage
	mu   sync.RWMutex
	bags map[string]BagStatus
}

func NewMockBaggageAPI() *MockBaggageAPI {
	return &MockBaggageAPI{
		bags: map[string]BagStatus{
			"AB12CD": {TagNumber: "FL482913", Status: "LOCATED", LastSeen: "YYC sort facility", ETAHours: 9, Deliverable: true},
		},
	}
}

func (m *MockBaggageAPI) TraceBag(ctx context.Context, bookingRef string) (BagStatus, error) {
	if err := m.check(); err != nil {
		return BagStatus{}, err
	}
	if err := ctx.Err(); err != nil {
		return BagStatus{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	bag, ok := m.bags[strings.ToUpper(bookingRef)]
	if !ok {
		return BagStatus{}, ErrBagNotFound
	}
	return bag, nil
}

func (m *MockBaggageAPI) TraceClaim(ctx context.Context, claimNumber string) (BagStatus, error) {
	if err := m.check(); err != nil {
		return BagStatus{}, err
	}
	if err := ctx.Err(); err != nil {
		return BagStatus{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, bag := range m.bags {
		if bag.TagNumber == strings.ToUpper(claimNumber) {
			return bag, nil
		}
	}
	return BagStatus{}, ErrBagNotFound
}

// MockSMSGateway records sent messages.
type MockSMSGateway struct {
	outage
	mu   sync.Mutex
	sent []string
}

func NewMockSMSGateway() *MockSMSGateway {
	return &MockSMSGateway{}
}

func (m *MockSMSGateway) Send(ctx context.Context, phone, body string) error {
	if err := m.check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.sent = append(m.sent, phone+": "+body)
	m.mu.Unlock()
	return nil
}

// Sent returns delivered messages for assertions.
func (m *MockSMSGateway) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}
