package monitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydesk/internal/model/convo"
	"skydesk/internal/session"
	"skydesk/internal/tools"
)

func TestSweepAlertsOnWatchedDelayedFlight(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(20, 6)
	flights := tools.NewMockFlightStatusAPI()

	sess, err := store.GetOrCreate(ctx, "sess-1", "cust-1", "skydesk", convo.ChannelWeb)
	require.NoError(t, err)
	sess.Entities["flightNumber"] = "F81234"
	_, err = store.Commit(ctx, sess)
	require.NoError(t, err)

	m := New(store, flights, 0, nil)
	m.Sweep(ctx)

	alerts := m.Alerts()
	require.Len(t, alerts, 1, "seeded F81234 is delayed 47 minutes")
	assert.Equal(t, "F81234", alerts[0].FlightNumber)
	assert.Equal(t, []string{"sess-1"}, alerts[0].SessionIDs)

	// Same status again stays quiet.
	m.Sweep(ctx)
	assert.Len(t, m.Alerts(), 1)

	// A band change re-alerts.
	flights.SetStatus(tools.FlightInfo{FlightNumber: "F81234", Status: "DELAYED", DelayMinutes: 200, DepartureGate: "B12"})
	m.Sweep(ctx)
	require.Len(t, m.Alerts(), 2)
	assert.Equal(t, 200, m.Alerts()[1].DelayMinutes)
}

func TestSweepIgnoresOnTimeAndUnwatchedFlights(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(20, 6)
	flights := tools.NewMockFlightStatusAPI()

	sess, err := store.GetOrCreate(ctx, "sess-1", "cust-2", "skydesk", convo.ChannelWeb)
	require.NoError(t, err)
	sess.Entities["flightNumber"] = "F84321"
	_, err = store.Commit(ctx, sess)
	require.NoError(t, err)

	m := New(store, flights, 0, nil)
	m.Sweep(ctx)
	assert.Empty(t, m.Alerts(), "on-time flights produce no alert")
}

func TestSweepSkipsResolvedSessions(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(20, 6)
	flights := tools.NewMockFlightStatusAPI()

	sess, err := store.GetOrCreate(ctx, "sess-1", "cust-1", "skydesk", convo.ChannelWeb)
	require.NoError(t, err)
	sess.Entities["flightNumber"] = "F81234"
	sess.Stage = convo.StageResolved
	_, err = store.Commit(ctx, sess)
	require.NoError(t, err)

	m := New(store, flights, 0, nil)
	m.Sweep(ctx)
	assert.Empty(t, m.Alerts())
}

func TestAlertHistoryStaysBounded(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(20, 6)
	flights := tools.NewMockFlightStatusAPI()

	sess, err := store.GetOrCreate(ctx, "sess-1", "cust-1", "skydesk", convo.ChannelWeb)
	require.NoError(t, err)
	sess.Entities["flightNumber"] = "F81234"
	_, err = store.Commit(ctx, sess)
	require.NoError(t, err)

	m := New(store, flights, 0, nil)
	for i := 0; i < maxAlerts+10; i++ {
		status := "CANCELLED"
		if i%2 == 0 {
			status = "DELAYED"
		}
		flights.SetStatus(tools.FlightInfo{FlightNumber: "F81234", Status: status, DelayMinutes: 200, DepartureGate: "B12"})
		m.Sweep(ctx)
	}

	alerts := m.Alerts()
	require.Len(t, alerts, maxAlerts)
	assert.Equal(t, "F81234", alerts[len(alerts)-1].FlightNumber)
}
