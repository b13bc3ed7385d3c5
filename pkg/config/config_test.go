package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Encoder.MaxJobs, "transcoding is serialized by default")
	assert.Equal(t, []int{360, 720, 1080}, cfg.Encoder.Heights)
	assert.Equal(t, 4, cfg.HLS.SegmentDuration)
	assert.Equal(t, []int{640, 1280, 1920}, cfg.Image.Widths)
	assert.Equal(t, []string{"todas"}, cfg.Media.Targets)
	assert.Equal(t, "signage:manifest:version", cfg.Redis.VersionKey)
	assert.Equal(t, "signage.manifest.events", cfg.Kafka.Topics.ManifestEvents)
	assert.NotZero(t, cfg.Notify.HeartbeatInterval)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
encoder:
  max_jobs: 3
  heights: [480, 960]
media:
  targets: ["lobby"]
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Encoder.MaxJobs)
	assert.Equal(t, []int{480, 960}, cfg.Encoder.Heights)
	assert.Equal(t, []string{"lobby"}, cfg.Media.Targets)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetRedisAddr(t *testing.T) {
	cfg := &Config{Redis: RedisConfig{Host: "cache", Port: 6380}}
	assert.Equal(t, "cache:6380", cfg.Redis.GetRedisAddr())
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Username: "signage", Password: "secret",
		Host: "db", Port: 3306, Database: "signage", Charset: "utf8mb4",
	}
	assert.Equal(t,
		"signage:secret@tcp(db:3306)/signage?charset=utf8mb4&parseTime=True&loc=Local",
		db.GetDSN())
}
