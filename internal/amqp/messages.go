package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// BillSyncMessage asks the worker to mirror a bill. It only carries the ID
// and version; the worker loads the bill itself.
type BillSyncMessage struct {
	BillID    string    `json:"bill_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillSyncMessage(billID string, version int64) *BillSyncMessage {
	return &BillSyncMessage{
		BillID:    billID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *BillSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillSyncMessageFromJSON decodes a message and rejects one without a bill ID.
func BillSyncMessageFromJSON(data []byte) (*BillSyncMessage, error) {
	var msg BillSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BillID == "" {
		return nil, errors.New("sync message without bill_id")
	}
	return &msg, nil
}
