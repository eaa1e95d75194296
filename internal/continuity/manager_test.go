package continuity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydesk/internal/config"
	"skydesk/internal/model/convo"
	"skydesk/internal/reference"
	"skydesk/internal/tools"
)

func testTenant() config.TenantConfig {
	return config.TenantConfig{
		BrandName:          "SkyDesk",
		CallCenterPhone:    "1-403-709-0808",
		AccessibilityPhone: "1-833-382-5421",
	}
}

func testSession() convo.Session {
	return convo.Session{
		ID:         "sess-1",
		CustomerID: "cust-1",
		Stage:      convo.StageResolving,
		LastIntent: convo.IntentBaggage,
		Entities:   map[string]string{"bookingRef": "AB12CD", "phone": "1-587-555-0144"},
	}
}

func TestPrepareSMSDeliversReference(t *testing.T) {
	sms := tools.NewMockSMSGateway()
	refs := reference.NewStore()
	mgr := NewManager(sms, tools.NewMockCRM(), refs, testTenant(), nil)

	cont, err := mgr.Prepare(context.Background(), testSession(), convo.ChannelSMS, "")
	require.NoError(t, err)

	assert.True(t, cont.Delivered)
	assert.True(t, reference.IsReferenceID(cont.Reference))
	require.Len(t, sms.Sent(), 1)
	assert.Contains(t, sms.Sent()[0], cont.Reference)
}

func TestPrepareSMSUsesCRMPhoneWhenSessionHasNone(t *testing.T) {
	sms := tools.NewMockSMSGateway()
	refs := reference.NewStore()
	mgr := NewManager(sms, tools.NewMockCRM(), refs, testTenant(), nil)

	sess := testSession()
	delete(sess.Entities, "phone")

	cont, err := mgr.Prepare(context.Background(), sess, convo.ChannelSMS, "")
	require.NoError(t, err)

	assert.True(t, cont.Delivered, "profile phone should carry the delivery")
	require.Len(t, sms.Sent(), 1)
	assert.Contains(t, sms.Sent()[0], "1-587-555-0144", "cust-1's profile number")
}

func TestPrepareSMSGatewayDownFallsBackToPublishedLine(t *testing.T) {
	sms := tools.NewMockSMSGateway()
	sms.SetDown(true)
	refs := reference.NewStore()
	mgr := NewManager(sms, tools.NewMockCRM(), refs, testTenant(), nil)

	cont, err := mgr.Prepare(context.Background(), testSession(), convo.ChannelSMS, "")
	require.NoError(t, err, "a gateway outage must not fail the switch")

	assert.False(t, cont.Delivered)
	assert.Equal(t, "1-403-709-0808", cont.FallbackPhone)
	assert.Contains(t, cont.Message, "1-403-709-0808")
	assert.Contains(t, cont.Message, cont.Reference)
}

func TestPrepareAccessibilityUsesDedicatedLine(t *testing.T) {
	refs := reference.NewStore()
	mgr := NewManager(tools.NewMockSMSGateway(), tools.NewMockCRM(), refs, testTenant(), nil)

	sess := testSession()
	sess.LastIntent = convo.IntentAccessibility

	cont, err := mgr.Prepare(context.Background(), sess, convo.ChannelPhone, "")
	require.NoError(t, err)
	assert.Equal(t, "1-833-382-5421", cont.FallbackPhone)
}

func TestPrepareReusesExistingReference(t *testing.T) {
	refs := reference.NewStore()
	existing := refs.Create(context.Background(), "sess-1", "cust-1", "escalation", "prior case")
	mgr := NewManager(tools.NewMockSMSGateway(), tools.NewMockCRM(), refs, testTenant(), nil)

	cont, err := mgr.Prepare(context.Background(), testSession(), convo.ChannelWeb, "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, cont.Reference)
}

func TestSummarize(t *testing.T) {
	sess := testSession()
	sess.PendingAction = "confirm rebooking option 1"
	sess.Turns = []convo.TurnRecord{{Reply: "Your bag is at the YYC sort facility."}}

	got := Summarize(sess)
	assert.Contains(t, got, "topic: baggage")
	assert.Contains(t, got, "stage: resolving")
	assert.Contains(t, got, "bookingRef=AB12CD")
	assert.Contains(t, got, "pending: confirm rebooking option 1")
	assert.Contains(t, got, "last update: Your bag is at the YYC sort facility.")
}
