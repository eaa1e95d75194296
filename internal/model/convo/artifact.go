package convo

import "time"

// ArtifactKind tags the closed set of resolution artifact variants.
type ArtifactKind string

const (
	ArtifactFlightStatus         ArtifactKind = "flight_status"
	ArtifactRebookingOptions     ArtifactKind = "rebooking_options"
	ArtifactCompensationEstimate ArtifactKind = "compensation_estimate"
	ArtifactRefundEstimate       ArtifactKind = "refund_estimate"
	ArtifactRefundConfirmation   ArtifactKind = "refund_confirmation"
	ArtifactTravelCredit         ArtifactKind = "travel_credit"
	ArtifactBaggageTrace         ArtifactKind = "baggage_trace"
	ArtifactCaseReference        ArtifactKind = "case_reference"
	ArtifactHandoffPackage       ArtifactKind = "handoff_package"
	ArtifactGrounding            ArtifactKind = "grounding"
)

// Artifact is a typed payload produced by a specialist handler. Only the
// field matching Kind is populated; the display layer consumes it read-only.
type Artifact struct {
	Kind         ArtifactKind          `json:"kind"`
	FlightStatus *FlightStatus         `json:"flightStatus,omitempty"`
	Rebooking    []RebookingOption     `json:"rebookingOptions,omitempty"`
	Compensation *CompensationEstimate `json:"compensationEstimate,omitempty"`
	Refund       *RefundEstimate       `json:"refundEstimate,omitempty"`
	RefundResult *RefundConfirmation   `json:"refundConfirmation,omitempty"`
	TravelCredit *TravelCredit         `json:"travelCredit,omitempty"`
	Baggage      *BaggageTrace         `json:"baggageTrace,omitempty"`
	Case         *CaseReference        `json:"caseReference,omitempty"`
	Handoff      *HandoffPackage       `json:"handoffPackage,omitempty"`
	Grounding    *Grounding            `json:"grounding,omitempty"`
}

// FlightStatus reports the live state of one flight.
type FlightStatus struct {
	FlightNumber  string    `json:"flightNumber"`
	Status        string    `json:"status"`
	DelayMinutes  int       `json:"delayMinutes"`
	DepartureGate string    `json:"departureGate"`
	Timestamp     time.Time `json:"timestamp"`
}

// RebookingOption is one alternative flight offered to the customer.
type RebookingOption struct {
	Option       int    `json:"option"`
	FlightNumber string `json:"flightNumber"`
	Route        string `json:"route"`
	Date         string `json:"date"`
	FareDiffCAD  int    `json:"fareDiffCad"`
}

// CompensationEstimate is a regulatory delay-compensation estimate.
type CompensationEstimate struct {
	AmountCAD         int    `json:"amountCad"`
	Currency          string `json:"currency"`
	RegulationSection string `json:"regulationSection"`
	Breakdown         string `json:"breakdown"`
}

// RefundEstimate quotes an eligible refund before the customer confirms.
type RefundEstimate struct {
	BookingReference string `json:"bookingReference"`
	AmountCAD        int    `json:"amountCad"`
	TimelineDays     int    `json:"timelineDays"`
}

// RefundConfirmation records an initiated refund.
type RefundConfirmation struct {
	BookingReference string `json:"bookingReference"`
	RefundID         string `json:"refundId"`
	AmountCAD        int    `json:"amountCad"`
	PaymentMethod    string `json:"paymentMethod"`
	Status           string `json:"status"`
}

// TravelCredit records an issued travel-credit voucher.
type TravelCredit struct {
	CustomerID string `json:"customerId"`
	BaseCAD    int    `json:"baseCad"`
	BonusCAD   int    `json:"bonusCad"`
	TotalCAD   int    `json:"totalCad"`
	Status     string `json:"status"`
}

// BaggageTrace reports a baggage claim lookup.
type BaggageTrace struct {
	ClaimNumber string `json:"claimNumber"`
	Status      string `json:"status"`
	Note        string `json:"note,omitempty"`
}

// CaseReference points at a created support case.
type CaseReference struct {
	CaseID  string `json:"caseId"`
	Subject string `json:"subject"`
}

// HandoffPackage is the context bundle passed to a human agent.
type HandoffPackage struct {
	SessionID   string            `json:"sessionId"`
	Reference   string            `json:"reference,omitempty"`
	RecentTurns []TurnRecord      `json:"recentTurns"`
	Entities    map[string]string `json:"entities"`
	Reasons     []string          `json:"reasons"`
}

// Grounding carries source-backing metadata for a reply.
type Grounding struct {
	SourceBacked bool   `json:"sourceBacked"`
	Source       string `json:"source,omitempty"`
}
