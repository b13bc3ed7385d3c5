package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Log             LogConfig             `mapstructure:"log"`
	Media           MediaConfig           `mapstructure:"media"`
	Encoder         EncoderConfig         `mapstructure:"encoder"`
	HLS             HLSConfig             `mapstructure:"hls"`
	Image           ImageConfig           `mapstructure:"image"`
	Notify          NotifyConfig          `mapstructure:"notify"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Database        DatabaseConfig        `mapstructure:"database"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
	Profiling       ProfilingConfig       `mapstructure:"profiling"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// MediaConfig describes the on-disk media layout and how it is exposed.
type MediaConfig struct {
	Root       string   `mapstructure:"root"`
	Targets    []string `mapstructure:"targets"`
	PublicBase string   `mapstructure:"public_base"`
}

// EncoderConfig drives the external ffmpeg/ffprobe invocations and the
// transcode job scheduler.
type EncoderConfig struct {
	FFmpegPath       string        `mapstructure:"ffmpeg_path"`
	FFprobePath      string        `mapstructure:"ffprobe_path"`
	MaxJobs          int           `mapstructure:"max_jobs"`
	QueueCapacity    int           `mapstructure:"queue_capacity"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Heights          []int         `mapstructure:"heights"`
	BitrateOverrides map[int]int   `mapstructure:"bitrate_overrides"`
	PortraitEnabled  bool          `mapstructure:"portrait_enabled"`
	Preset           string        `mapstructure:"preset"`
	CRF              int           `mapstructure:"crf"`
}

// HLSConfig controls adaptive stream generation.
type HLSConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	SegmentDuration int     `mapstructure:"segment_duration"`
	FPSOverride     float64 `mapstructure:"fps_override"`
}

// ImageConfig controls the still-image variant pipeline.
type ImageConfig struct {
	Widths          []int `mapstructure:"widths"`
	Quality         int   `mapstructure:"quality"`
	PortraitEnabled bool  `mapstructure:"portrait_enabled"`
}

// NotifyConfig controls the live-update channel.
type NotifyConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

// RedisConfig mirrors the manifest version into redis when enabled.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
	VersionKey   string        `mapstructure:"version_key"`
}

// KafkaConfig mirrors manifest version events to a topic when enabled.
type KafkaConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

type KafkaTopicsConfig struct {
	ManifestEvents string `mapstructure:"manifest_events"`
}

// MinioConfig configures the optional derivative mirror bucket.
type MinioConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// DatabaseConfig configures the optional publish ledger.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ServiceRegistryConfig configures optional etcd registration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// ProfilingConfig configures optional pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ServerURL string `mapstructure:"server_url"`
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// SetGlobalConfig stores the process-wide configuration.
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig returns the process-wide configuration, or nil before Load.
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// Load reads the YAML configuration file, applies environment overrides and
// fills defaults.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8085)
	viper.SetDefault("media.root", "storage/media")
	viper.SetDefault("kafka.client_id", "signage-service")
	viper.SetDefault("kafka.topics.manifest_events", "signage.manifest.events")
	viper.SetDefault("service_registry.service_name", "signage-service")

	viper.SetEnvPrefix("SIGNAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize fills defaults for unset fields.
func (c *Config) normalize() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8085
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}

	if c.Media.Root == "" {
		c.Media.Root = "storage/media"
	}
	if len(c.Media.Targets) == 0 {
		c.Media.Targets = []string{"todas"}
	}

	if c.Encoder.FFmpegPath == "" {
		c.Encoder.FFmpegPath = "ffmpeg"
	}
	if c.Encoder.FFprobePath == "" {
		c.Encoder.FFprobePath = "ffprobe"
	}
	if c.Encoder.MaxJobs <= 0 {
		c.Encoder.MaxJobs = 1
	}
	if c.Encoder.QueueCapacity <= 0 {
		c.Encoder.QueueCapacity = c.Encoder.MaxJobs * 50
	}
	if c.Encoder.Timeout == 0 {
		c.Encoder.Timeout = time.Hour
	}
	if len(c.Encoder.Heights) == 0 {
		c.Encoder.Heights = []int{360, 720, 1080}
	}
	if c.Encoder.Preset == "" {
		c.Encoder.Preset = "veryfast"
	}
	if c.Encoder.CRF <= 0 {
		c.Encoder.CRF = 23
	}

	if c.HLS.SegmentDuration <= 0 {
		c.HLS.SegmentDuration = 4
	}

	if len(c.Image.Widths) == 0 {
		c.Image.Widths = []int{640, 1280, 1920}
	}
	if c.Image.Quality <= 0 || c.Image.Quality > 100 {
		c.Image.Quality = 85
	}

	if c.Notify.HeartbeatInterval <= 0 {
		c.Notify.HeartbeatInterval = 25 * time.Second
	}
	if c.Notify.PollInterval <= 0 {
		c.Notify.PollInterval = time.Minute
	}

	if c.Redis.VersionKey == "" {
		c.Redis.VersionKey = "signage:manifest:version"
	}

	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "signage-service"
	}
	if c.Kafka.Topics.ManifestEvents == "" {
		c.Kafka.Topics.ManifestEvents = "signage.manifest.events"
	}

	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}

	if c.ServiceRegistry.ServiceName == "" {
		c.ServiceRegistry.ServiceName = "signage-service"
	}
	if c.ServiceRegistry.DialTimeout == 0 {
		c.ServiceRegistry.DialTimeout = 5 * time.Second
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
}

// GetDSN builds the mysql connection string for the publish ledger.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr returns the redis host:port pair.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
