package amqp

import (
	"encoding/json"
	"time"
)

// CustomerSyncMessage asks the worker to export one customer row.
// It carries only the ID; the worker reads the current row from the
// database so stale messages never overwrite newer data.
type CustomerSyncMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewCustomerSyncMessage(id int64) *CustomerSyncMessage {
	return &CustomerSyncMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *CustomerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CustomerSyncMessageFromJSON(data []byte) (*CustomerSyncMessage, error) {
	var msg CustomerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
