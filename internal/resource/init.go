package resource

import "signage-service/pkg/config"

// MustInit opens every resource enabled in configuration; disabled resources
// stay nil and their consumers degrade to local-only behaviour.
func MustInit(cfg *config.Config) {
	if cfg.Minio.Enabled {
		DefaultMinioResource().MustOpen()
	}
	if cfg.Redis.Enabled {
		DefaultRedisResource().MustOpen()
	}
	if cfg.Kafka.Enabled {
		DefaultKafkaResource().MustOpen()
	}
}

// Close releases every opened resource.
func Close() {
	DefaultKafkaResource().Close()
	DefaultRedisResource().Close()
	DefaultMinioResource().Close()
}
