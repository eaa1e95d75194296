package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"skydesk/internal/analysis/intent"
	"skydesk/internal/model/convo"
)

// Config controls the model-backed classifier.
type Config struct {
	Enabled bool
}

// Service classifies customer messages with a chat model and falls back to
// the keyword extractor whenever the model is unavailable, slow, or returns
// something unusable. The caller never sees the difference.
type Service struct {
	enabled    bool
	classifier compose.Runnable[map[string]any, *schema.Message]
	logger     *zap.Logger
}

// NewService builds the classifier. chatModel may reuse an existing model
// instance; pass nil to run purely on the heuristic extractor.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := &Service{
		enabled: cfg.Enabled && chatModel != nil,
		logger:  logger,
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage(classifierUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile intent classifier chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled reports whether the model path is active.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Classify returns the intent read for a message. Entities always come from
// the deterministic extractor; the model only ever overrides the intent
// label and confidence, so entity validation rules cannot be bypassed.
func (s *Service) Classify(ctx context.Context, text string, sctx intent.Context) intent.Result {
	heuristic := intent.Extract(text, sctx)
	if !s.Enabled() {
		return heuristic
	}

	input := map[string]any{
		"message":     strings.TrimSpace(text),
		"last_intent": string(sctx.LastIntent),
		"last_stage":  string(sctx.LastStage),
	}

	msg, err := s.classifier.Invoke(ctx, input)
	if err != nil {
		s.logger.Warn("intent classifier invoke failed, using heuristic", zap.Error(err))
		return heuristic
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return heuristic
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		s.logger.Warn("intent classifier output unusable, using heuristic", zap.Error(err))
		return heuristic
	}

	label, ok := parseIntentLabel(payload.Intent)
	if !ok {
		return heuristic
	}

	confidence := payload.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.7
	}

	heuristic.Intent = label
	heuristic.Confidence = confidence
	heuristic.CarriedOver = false
	return heuristic
}

type classifierPayload struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func parseIntentLabel(raw string) (convo.Intent, bool) {
	normalized := convo.Intent(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case convo.IntentBookingChange, convo.IntentCancellation, convo.IntentRefund,
		convo.IntentBaggage, convo.IntentDelayInfo, convo.IntentDisruption,
		convo.IntentCompensationClaim, convo.IntentAccessibility,
		convo.IntentComplaint, convo.IntentHumanAgent, convo.IntentGeneralInquiry:
		return normalized, true
	default:
		return "", false
	}
}

const classifierSystemPrompt = "You classify airline customer-support messages. Read the message and the conversation markers, then return exactly one JSON object with fields: intent (one of booking_change/cancellation/refund/baggage/delay_info/disruption/compensation_claim/accessibility/complaint/human_agent/general_inquiry), confidence (a number between 0 and 1), reason (one short sentence). Output nothing but the JSON object."

const classifierUserPrompt = "Customer message:\n{message}\n\nPrevious intent: {last_intent}\nConversation stage: {last_stage}\n\nReturn the JSON."
