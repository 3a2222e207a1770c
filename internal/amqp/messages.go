package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Reasons carried by InsightsRefreshMessage.
const (
	ReasonTransactionCreated = "transaction.created"
	ReasonTransactionDeleted = "transaction.deleted"
)

var ErrMalformedMessage = errors.New("malformed message")

// InsightsRefreshMessage asks the worker to recompute a user's expense patterns.
// The worker reads the transactions itself; the message only names the user.
type InsightsRefreshMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInsightsRefreshMessage(userID, reason string) *InsightsRefreshMessage {
	return &InsightsRefreshMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

func (m *InsightsRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InsightsRefreshMessageFromJSON decodes a delivery body. Bodies that do not
// decode or carry no user id are reported as ErrMalformedMessage.
func InsightsRefreshMessageFromJSON(data []byte) (*InsightsRefreshMessage, error) {
	var msg InsightsRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Join(ErrMalformedMessage, err)
	}
	if strings.TrimSpace(msg.UserID) == "" {
		return nil, errors.Join(ErrMalformedMessage, errors.New("missing user_id"))
	}
	return &msg, nil
}
