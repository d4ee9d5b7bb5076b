package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"budgetfilter/internal/dimension"
)

// CriteriaMessage carries one freshly compiled criteria fragment.
type CriteriaMessage struct {
	ID        uuid.UUID         `json:"id"`
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id,omitempty"`
	Context   dimension.Context `json:"context"`
	Criteria  string            `json:"criteria"`
	// Args binds the placeholders of a parameterized criteria, in order.
	Args      []any             `json:"args,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewCriteriaMessage stamps a message with a fresh ID and the current time.
func NewCriteriaMessage(sessionID, userID string, qctx dimension.Context, criteria string) *CriteriaMessage {
	return &CriteriaMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Context:   qctx,
		Criteria:  criteria,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CriteriaMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CriteriaMessageFromJSON decodes a message.
func CriteriaMessageFromJSON(data []byte) (*CriteriaMessage, error) {
	var msg CriteriaMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
