package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"skydesk/internal/model/convo"
	"skydesk/internal/session"
	"skydesk/internal/tools"
)

// maxAlerts bounds the retained history; older alerts age out first.
const maxAlerts = 64

// Alert is a proactive disruption notice for flights customers are
// actively talking about.
type Alert struct {
	FlightNumber string    `json:"flightNumber"`
	Status       string    `json:"status"`
	DelayMinutes int       `json:"delayMinutes"`
	SessionIDs   []string  `json:"sessionIds"`
	Note         string    `json:"note"`
	At           time.Time `json:"at"`
}

// Monitor polls flight status for every flight referenced by a live
// session and records an alert when the status changes for the worse.
type Monitor struct {
	store    *session.Store
	flights  tools.FlightStatusAPI
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	lastSeen map[string]string
	alerts   []Alert
}

// New builds a monitor.
func New(store *session.Store, flights tools.FlightStatusAPI, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:    store,
		flights:  flights,
		interval: interval,
		logger:   logger,
		lastSeen: make(map[string]string),
	}
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep performs one poll cycle. Exposed so callers can trigger a check
// without waiting for the ticker.
func (m *Monitor) Sweep(ctx context.Context) {
	watched := m.watchedFlights(ctx)
	for flight, sessions := range watched {
		info, err := m.flights.FlightStatus(ctx, flight)
		if err != nil {
			// Transient lookup failures just wait for the next sweep.
			continue
		}

		key := statusKey(info)
		m.mu.Lock()
		previous, seen := m.lastSeen[flight]
		m.lastSeen[flight] = key
		m.mu.Unlock()

		if seen && previous == key {
			continue
		}
		if !worthAlerting(info) {
			continue
		}

		alert := Alert{
			FlightNumber: flight,
			Status:       info.Status,
			DelayMinutes: info.DelayMinutes,
			SessionIDs:   sessions,
			Note:         describeChange(info),
			At:           time.Now().UTC(),
		}
		m.mu.Lock()
		m.alerts = append(m.alerts, alert)
		if len(m.alerts) > maxAlerts {
			m.alerts = append(m.alerts[:0:0], m.alerts[len(m.alerts)-maxAlerts:]...)
		}
		m.mu.Unlock()

		m.logger.Info("disruption alert recorded",
			zap.String("flight", flight),
			zap.String("status", info.Status),
			zap.Int("delayMinutes", info.DelayMinutes),
			zap.Int("sessions", len(sessions)))
	}
}

// Alerts returns recorded alerts, newest last.
func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

func (m *Monitor) watchedFlights(ctx context.Context) map[string][]string {
	watched := make(map[string][]string)
	for _, sess := range m.store.List(ctx) {
		if sess.Stage == convo.StageResolved {
			continue
		}
		if flight := sess.Entity("flightNumber"); flight != "" {
			watched[flight] = append(watched[flight], sess.ID)
		}
	}
	return watched
}

func worthAlerting(info tools.FlightInfo) bool {
	return info.Status == "CANCELLED" || (info.Status == "DELAYED" && info.DelayMinutes >= 30)
}

func statusKey(info tools.FlightInfo) string {
	return info.Status + "/" + delayBand(info.DelayMinutes)
}

// delayBand buckets delay so a one-minute drift doesn't re-alert.
func delayBand(minutes int) string {
	switch {
	case minutes >= 540:
		return "9h+"
	case minutes >= 360:
		return "6h"
	case minutes >= 180:
		return "3h"
	case minutes >= 30:
		return "short"
	default:
		return "none"
	}
}

func describeChange(info tools.FlightInfo) string {
	if info.Status == "CANCELLED" {
		return "flight cancelled; rebooking options are ready"
	}
	return "delay of " + delayBand(info.DelayMinutes) + " band; compensation may apply"
}
