package amqp

import (
	"encoding/json"
	"time"
)

// RecordSyncMessage tells the worker to mirror one locally captured write to
// the remote store. It carries only the collection, record id, and operation;
// the worker fetches the current record from the local database.
type RecordSyncMessage struct {
	Collection string    `json:"collection"` // "transactions" or "categories"
	RecordID   string    `json:"record_id"`
	Op         string    `json:"op"` // "upsert" or "delete"
	Timestamp  time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(collection, recordID, op string) *RecordSyncMessage {
	return &RecordSyncMessage{
		Collection: collection,
		RecordID:   recordID,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON creates a message from JSON bytes.
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
