package resource

import (
	"sync"

	"signage-service/pkg/kafka"
)

var (
	kafkaResourceOnce sync.Once
	kafkaSingleton    *KafkaResource
)

// KafkaResource manages the manifest-event producer lifecycle.
type KafkaResource struct {
	opened bool
}

// DefaultKafkaResource returns the global kafka resource instance.
func DefaultKafkaResource() *KafkaResource {
	kafkaResourceOnce.Do(func() {
		kafkaSingleton = &KafkaResource{}
	})
	return kafkaSingleton
}

// MustOpen configures the shared producer client.
func (r *KafkaResource) MustOpen() {
	kafka.DefaultClient().MustOpen()
	r.opened = true
}

// Opened reports whether the producer was configured.
func (r *KafkaResource) Opened() bool { return r.opened }

// Close flushes producer writers.
func (r *KafkaResource) Close() {
	if r.opened {
		kafka.DefaultClient().Close()
	}
}
