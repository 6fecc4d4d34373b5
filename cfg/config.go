package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// GraphSinkType selects where road graph messages are sent
type GraphSinkType string

const (
	GraphSinkNone  GraphSinkType = "none"  // Discard graph messages
	GraphSinkLog   GraphSinkType = "log"   // Log graph messages at debug level
	GraphSinkNats  GraphSinkType = "nats"  // NATS JetStream subject
	GraphSinkKafka GraphSinkType = "kafka" // Kafka topic
)

// DatabaseConfiguration for the PostgreSQL source
type DatabaseConfiguration struct {
	URL      string `toml:"url"`
	TimeZone string `toml:"time_zone"`
}

// PublishConfiguration controls where materialized files are written
type PublishConfiguration struct {
	Dir              string `toml:"dir"`
	Precompress      bool   `toml:"precompress"`
	CompressionLevel int    `toml:"compression_level"`
	PollWindowMS     int    `toml:"poll_window_ms"`
	EncodeCacheSize  int    `toml:"encode_cache_size"`
}

// MirrorConfiguration controls replication of published files to a remote host
type MirrorConfiguration struct {
	Host           string   `toml:"host"` // host[:port], empty disables mirroring
	User           string   `toml:"user"`
	RemoteDir      string   `toml:"remote_dir"`
	KeyFile        string   `toml:"key_file"`
	KnownHosts     string   `toml:"known_hosts"`
	BackoffSeconds int      `toml:"backoff_seconds"`
	FileMode       string   `toml:"file_mode"`
	Include        []string `toml:"include"`
	Exclude        []string `toml:"exclude"`
}

// GraphConfiguration selects the road graph message sink
type GraphConfiguration struct {
	Sink    GraphSinkType `toml:"sink"`
	Topic   string        `toml:"topic"`
	NatsURL string        `toml:"nats_url"`
	Brokers []string      `toml:"brokers"`
}

// RenderConfiguration for the sign message preview renderer
type RenderConfiguration struct {
	Command        string   `toml:"command"` // empty disables rendering
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool `toml:"enabled"`
}

// AdminConfiguration for the admin HTTP server
type AdminConfiguration struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	Secret      string `toml:"secret"` // empty disables authentication
}

// Configuration is the main configuration structure
type Configuration struct {
	InstanceID uint64 `toml:"instance_id"`

	Database   DatabaseConfiguration   `toml:"database"`
	Publish    PublishConfiguration    `toml:"publish"`
	Mirror     MirrorConfiguration     `toml:"mirror"`
	Graph      GraphConfiguration      `toml:"graph"`
	Render     RenderConfiguration     `toml:"render"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
	Admin      AdminConfiguration      `toml:"admin"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "honeybee.toml", "Path to configuration file")
	PublishDirFlag = flag.String("publish-dir", "", "Publish directory (overrides config)")
	MirrorHostFlag = flag.String("mirror-host", "", "Mirror host[:port] (overrides config)")
	DatabaseFlag   = flag.String("db-url", "", "PostgreSQL connection URL (overrides config)")
)

// Default configuration
var Config = &Configuration{
	InstanceID: 0, // Auto-generate

	Database: DatabaseConfiguration{
		URL:      "postgres:///tms?host=/var/run/postgresql",
		TimeZone: "UTC",
	},

	Publish: PublishConfiguration{
		Dir:              "/var/www/html/iris",
		Precompress:      false,
		CompressionLevel: 6,
		PollWindowMS:     300,
		EncodeCacheSize:  512,
	},

	Mirror: MirrorConfiguration{
		User:           "",
		RemoteDir:      "/var/www/html/iris",
		KeyFile:        "",
		KnownHosts:     "",
		BackoffSeconds: 10,
		FileMode:       "0644",
	},

	Graph: GraphConfiguration{
		Sink:  GraphSinkLog,
		Topic: "honeybee.graph",
	},

	Render: RenderConfiguration{
		TimeoutSeconds: 60,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: true,
	},

	Admin: AdminConfiguration{
		Enabled:     true,
		BindAddress: "127.0.0.1",
		Port:        3737,
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	if *PublishDirFlag != "" {
		Config.Publish.Dir = *PublishDirFlag
	}
	if *MirrorHostFlag != "" {
		Config.Mirror.Host = *MirrorHostFlag
	}
	if *DatabaseFlag != "" {
		Config.Database.URL = *DatabaseFlag
	}

	if Config.InstanceID == 0 {
		var err error
		Config.InstanceID, err = generateInstanceID()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}
		log.Info().Uint64("instance_id", Config.InstanceID).Msg("Auto-generated instance ID")
	}

	if err := os.MkdirAll(Config.Publish.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create publish directory: %w", err)
	}

	return nil
}

// generateInstanceID creates a stable instance ID based on machine ID
func generateInstanceID() (uint64, error) {
	id, err := machineid.ProtectedID("honeybee")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// MirrorEnabled reports whether published files are copied to a remote host
func MirrorEnabled() bool {
	return Config.Mirror.Host != ""
}

// MirrorFileMode parses the configured remote file mode
func MirrorFileMode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(Config.Mirror.FileMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mirror file mode %q: %w", Config.Mirror.FileMode, err)
	}
	return os.FileMode(mode).Perm(), nil
}

// Validate checks configuration for errors
func Validate() error {
	if Config.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}

	if Config.Publish.Dir == "" {
		return fmt.Errorf("publish directory is required")
	}

	if Config.Publish.PollWindowMS < 1 {
		return fmt.Errorf("publish poll window must be >= 1ms")
	}

	if Config.Publish.Precompress && (Config.Publish.CompressionLevel < 1 || Config.Publish.CompressionLevel > 9) {
		return fmt.Errorf("invalid compression level: %d", Config.Publish.CompressionLevel)
	}

	if Config.Publish.EncodeCacheSize < 0 {
		return fmt.Errorf("encode cache size must be >= 0")
	}

	if MirrorEnabled() {
		if Config.Mirror.RemoteDir == "" {
			return fmt.Errorf("mirror remote directory is required")
		}
		if Config.Mirror.BackoffSeconds < 1 {
			return fmt.Errorf("mirror backoff must be >= 1 second")
		}
		if _, err := MirrorFileMode(); err != nil {
			return err
		}
	}

	switch Config.Graph.Sink {
	case GraphSinkNone, GraphSinkLog:
	case GraphSinkNats:
		if Config.Graph.NatsURL == "" {
			return fmt.Errorf("nats graph sink requires nats_url")
		}
	case GraphSinkKafka:
		if len(Config.Graph.Brokers) == 0 {
			return fmt.Errorf("kafka graph sink requires brokers")
		}
	default:
		return fmt.Errorf("invalid graph sink: %s", Config.Graph.Sink)
	}

	if Config.Render.TimeoutSeconds < 0 {
		return fmt.Errorf("render timeout must be >= 0")
	}

	if Config.Admin.Enabled && (Config.Admin.Port < 1 || Config.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port: %d", Config.Admin.Port)
	}

	if Config.Logging.Format != "" && Config.Logging.Format != "console" && Config.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s", Config.Logging.Format)
	}

	return nil
}
