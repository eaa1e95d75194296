package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skydesk/internal/model/convo"
)

func TestExtractClassifiesCommonRequests(t *testing.T) {
	cases := []struct {
		name string
		text string
		want convo.Intent
	}{
		{"rebooking", "I need to change my flight to tomorrow", convo.IntentBookingChange},
		{"refund", "I want a refund for this", convo.IntentRefund},
		{"baggage", "my luggage never showed up at the carousel", convo.IntentBaggage},
		{"delay info", "is my flight F81234 delayed?", convo.IntentDelayInfo},
		{"disruption", "you cancelled my flight and now I'm stranded", convo.IntentDisruption},
		{"compensation", "what compensation am I entitled to", convo.IntentCompensationClaim},
		{"accessibility", "I travel with a wheelchair and need assistance boarding", convo.IntentAccessibility},
		{"human agent", "let me speak to someone real", convo.IntentHumanAgent},
		{"general", "what is your carry-on size limit", convo.IntentGeneralInquiry},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.text, Context{})
			assert.Equal(t, tc.want, got.Intent)
		})
	}
}

func TestExtractDisruptionBeatsCancellationRequest(t *testing.T) {
	got := Extract("my flight was cancelled, what now", Context{})
	assert.Equal(t, convo.IntentDisruption, got.Intent)
}

func TestExtractBookingRefValidation(t *testing.T) {
	// The word REFUND is six letters but carries no digit, so it must not
	// be read as a booking reference.
	got := Extract("booking AB12CD please, and REFUND the difference", Context{})
	assert.Equal(t, "AB12CD", got.Entities["bookingRef"])

	got = Extract("REFUND please", Context{})
	assert.Empty(t, got.Entities["bookingRef"])
}

func TestExtractFlightNumberIsNotABookingRef(t *testing.T) {
	got := Extract("flight F81234 from YYC to YVR on 2026-09-02", Context{})
	assert.Equal(t, "F81234", got.Entities["flightNumber"])
	assert.Empty(t, got.Entities["bookingRef"])
	assert.Equal(t, "YYC-YVR", got.Entities["route"])
	assert.Equal(t, "2026-09-02", got.Entities["date"])
}

func TestExtractPrefersMostRecentBookingRef(t *testing.T) {
	got := Extract("not AB12CD, I meant ZX98YQ", Context{})
	assert.Equal(t, "ZX98YQ", got.Entities["bookingRef"])
}

func TestExtractShortFollowUpCarriesLastIntent(t *testing.T) {
	got := Extract("and the fees?", Context{LastIntent: convo.IntentRefund})
	assert.Equal(t, convo.IntentRefund, got.Intent)
	assert.True(t, got.CarriedOver)
	assert.InDelta(t, 0.6, got.Confidence, 0.01)
}

func TestExtractLongUnmatchedTextStaysGeneral(t *testing.T) {
	got := Extract("I have a long story about my trip last month that I would like to share with you in detail", Context{LastIntent: convo.IntentRefund})
	assert.Equal(t, convo.IntentGeneralInquiry, got.Intent)
	assert.False(t, got.CarriedOver)
}

func TestExtractUrgency(t *testing.T) {
	calm := Extract("can you check my flight status", Context{})
	urgent := Extract("I'm stranded at the airport, this is urgent!!", Context{})
	assert.Greater(t, urgent.Urgency, calm.Urgency)
}

func TestIsAffirmation(t *testing.T) {
	assert.True(t, IsAffirmation("yes please"))
	assert.True(t, IsAffirmation("Option 1"))
	assert.True(t, IsAffirmation("do it."))
	assert.False(t, IsAffirmation("yes but only if it's free"))
}

func TestValidBookingRef(t *testing.T) {
	assert.True(t, ValidBookingRef("AB12CD"))
	assert.True(t, ValidBookingRef("zx98yq"))
	assert.False(t, ValidBookingRef("REFUND"), "all-letter words are not references")
	assert.False(t, ValidBookingRef("123456"), "all-digit tokens are not references")
	assert.False(t, ValidBookingRef("F81234"), "flight numbers are not references")
	assert.False(t, ValidBookingRef("AB12CDE"))
}
