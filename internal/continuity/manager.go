package continuity

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"skydesk/internal/config"
	"skydesk/internal/model/convo"
	"skydesk/internal/reference"
	"skydesk/internal/tools"
)

// Continuation is everything a customer needs to pick the conversation up
// on another channel.
type Continuation struct {
	SessionID     string        `json:"sessionId"`
	Reference     string        `json:"reference"`
	Target        convo.Channel `json:"target"`
	Summary       string        `json:"summary"`
	Message       string        `json:"message"`
	Delivered     bool          `json:"delivered"`
	FallbackPhone string        `json:"fallbackPhone,omitempty"`
}

// Manager prepares channel switches. It never fails the switch outright:
// when the outbound gateway is down it falls back to the tenant's published
// phone numbers so the customer always leaves with a way forward.
type Manager struct {
	sms    tools.SMSGateway
	crm    tools.CRM
	refs   *reference.Store
	tenant config.TenantConfig
	logger *zap.Logger
}

// NewManager builds a continuity manager.
func NewManager(sms tools.SMSGateway, crm tools.CRM, refs *reference.Store, tenant config.TenantConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{sms: sms, crm: crm, refs: refs, tenant: tenant, logger: logger}
}

// profilePhone falls back to the number on the customer's CRM profile when
// neither the request nor the session carries one. A CRM outage just means
// no fallback number.
func (m *Manager) profilePhone(ctx context.Context, customerID string) string {
	if m.crm == nil || customerID == "" {
		return ""
	}
	profile, err := m.crm.GetCustomer(ctx, customerID)
	if err != nil {
		m.logger.Warn("crm lookup for continuation phone failed",
			zap.String("customerId", customerID),
			zap.Error(err))
		return ""
	}
	return profile.Phone
}

// Prepare assembles the continuation for a session moving to the target
// channel. The phone argument wins when set; otherwise the session's phone
// entity, then the CRM profile, fill it in for SMS delivery.
func (m *Manager) Prepare(ctx context.Context, sess convo.Session, target convo.Channel, phone string) (Continuation, error) {
	ref := m.referenceFor(ctx, sess)
	summary := Summarize(sess)

	cont := Continuation{
		SessionID: sess.ID,
		Reference: ref,
		Target:    target,
		Summary:   summary,
	}

	switch target {
	case convo.ChannelSMS:
		body := fmt.Sprintf("Your support reference is %s. Reply here to continue where we left off.", ref)
		if phone == "" {
			phone = sess.Entity("phone")
		}
		if phone == "" {
			phone = m.profilePhone(ctx, sess.CustomerID)
		}
		if phone == "" {
			cont.Message = fmt.Sprintf("Quote reference %s when you text us and we'll pick up right where we left off.", ref)
			cont.Delivered = false
			return cont, nil
		}
		if err := m.sms.Send(ctx, phone, body); err != nil {
			m.logger.Warn("sms gateway unavailable, falling back to published line",
				zap.String("sessionId", sess.ID),
				zap.Error(err))
			fallback := m.fallbackPhone(sess)
			cont.Delivered = false
			cont.FallbackPhone = fallback
			cont.Message = fmt.Sprintf("We couldn't reach you by text right now. Please call us at %s and quote reference %s; the agent will see everything we've covered.", fallback, ref)
			return cont, nil
		}
		cont.Delivered = true
		cont.Message = fmt.Sprintf("We've texted your reference %s. Reply to that message to continue.", ref)

	case convo.ChannelPhone, convo.ChannelVoice:
		phone := m.fallbackPhone(sess)
		cont.FallbackPhone = phone
		cont.Message = fmt.Sprintf("Call us at %s and quote reference %s; the agent will have your full context.", phone, ref)
		cont.Delivered = true

	default:
		cont.Message = fmt.Sprintf("Quote reference %s on any channel to continue where we left off.", ref)
		cont.Delivered = true
	}

	return cont, nil
}

// referenceFor reuses the session's newest reference or mints one.
func (m *Manager) referenceFor(ctx context.Context, sess convo.Session) string {
	if existing := m.refs.BySession(ctx, sess.ID); len(existing) > 0 {
		return existing[0].ID
	}
	ref := m.refs.Create(ctx, sess.ID, sess.CustomerID, "continuity", Summarize(sess))
	return ref.ID
}

// fallbackPhone picks the published line. Accessibility conversations get
// the dedicated accessibility desk.
func (m *Manager) fallbackPhone(sess convo.Session) string {
	if sess.LastIntent == convo.IntentAccessibility || sess.Entity("accessibility") != "" {
		return m.tenant.AccessibilityPhone
	}
	return m.tenant.CallCenterPhone
}

// Summarize renders a compact human-readable state of the session for an
// agent or the customer's next channel.
func Summarize(sess convo.Session) string {
	var parts []string

	if sess.LastIntent != "" {
		parts = append(parts, "topic: "+strings.ReplaceAll(string(sess.LastIntent), "_", " "))
	}
	parts = append(parts, "stage: "+string(sess.Stage))

	if len(sess.Entities) > 0 {
		keys := make([]string, 0, len(sess.Entities))
		for k := range sess.Entities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, k+"="+sess.Entities[k])
		}
		parts = append(parts, "details: "+strings.Join(kv, ", "))
	}

	if sess.PendingAction != "" {
		parts = append(parts, "pending: "+sess.PendingAction)
	}
	if reply := sess.LastReply(); reply != "" {
		parts = append(parts, "last update: "+reply)
	}

	return strings.Join(parts, "; ")
}
