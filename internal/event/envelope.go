package event

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/services"
)

// Stage event types, in chain order. The metadata extraction branch fans out
// of image.fetched and feeds the external annotator alongside it.
const (
	TypeWorkflowStarted   = "workflow.started"
	TypeImageFetched      = "image.fetched"
	TypeMetadataExtracted = "image.metadata_extracted"
	TypeImageAnnotated    = "image.annotated"
	TypeImageStored       = "image.stored"
	TypeNotificationSent  = "notification.sent"
)

// Payload carries the stage-specific fields of an envelope.
type Payload = map[string]any

// Envelope is the wire event format shared by every stage. Envelopes are
// built once at publish time and never mutated.
type Envelope struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	WorkflowID string    `json:"workflowId"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    Payload   `json:"payload"`
}

// New builds an envelope with a fresh unique event id and the current time.
// It is purely a constructor; nothing is published or recorded here.
func New(eventType, workflowID string, payload Payload) Envelope {
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		WorkflowID: workflowID,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		Payload:    payload,
	}
}

// Marshal serializes the envelope to its JSON wire form.
func Marshal(env Envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformed, "event", "marshal", "", err)
	}
	return body, nil
}

// Parse decodes a wire message into an envelope. The payload contents are not
// validated here; each consumer checks the fields it requires.
func Parse(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, services.Wrap(services.ErrMalformed, "event", "parse", "", err)
	}
	if strings.TrimSpace(env.EventID) == "" ||
		strings.TrimSpace(env.EventType) == "" ||
		strings.TrimSpace(env.WorkflowID) == "" {
		return Envelope{}, services.Wrap(services.ErrMalformed, "event", "parse",
			"envelope missing eventId, eventType, or workflowId", nil)
	}
	return env, nil
}

// PayloadString extracts a string payload field, reporting whether it was
// present and non-empty.
func (e Envelope) PayloadString(key string) (string, bool) {
	if e.Payload == nil {
		return "", false
	}
	str, ok := e.Payload[key].(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}
