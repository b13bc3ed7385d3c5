package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"signage-service/pkg/kafka"
	"signage-service/pkg/logger"
)

// ManifestEvent is the payload mirrored to the event topic on every
// publish.
type ManifestEvent struct {
	Version   int64     `json:"version"`
	Target    string    `json:"target"`
	ItemID    string    `json:"item_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// KafkaMirror pushes manifest events onto a topic for downstream consumers.
// It is best-effort; a broker failure never blocks a publish.
type KafkaMirror struct {
	client *kafka.Client
	topic  string
}

// NewKafkaMirror returns a mirror over the shared producer; a nil client
// disables it.
func NewKafkaMirror(client *kafka.Client, topic string) *KafkaMirror {
	return &KafkaMirror{client: client, topic: topic}
}

func (m *KafkaMirror) Publish(ctx context.Context, ev ManifestEvent) {
	if m == nil || m.client == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	key := []byte(strconv.FormatInt(ev.Version, 10))
	if err := m.client.Produce(ctx, m.topic, key, payload); err != nil {
		logger.Warnf("kafka manifest event publish failed version=%d error=%v", ev.Version, err)
	}
}
