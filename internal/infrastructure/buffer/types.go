package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Item is a task event that could not be handed to the broker and is parked
// on disk until the broker is reachable again.
type Item struct {
	ID        string          `json:"id"`
	Queue     string          `json:"queue"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
