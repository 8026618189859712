package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ExpenseChangedMessage announces a completed write to a user's expenses.
type ExpenseChangedMessage struct {
	UserID     string    `json:"userId"`
	Action     string    `json:"action"`
	Count      int       `json:"count"`
	ExpenseIDs []string  `json:"expenseIds,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(userID, action string, ids []string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		UserID:     userID,
		Action:     action,
		Count:      len(ids),
		ExpenseIDs: ids,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON decodes and checks a message body.
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.Action == "" {
		return nil, errors.New("message missing userId or action")
	}
	return &msg, nil
}
