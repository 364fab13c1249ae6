package config

import (
	"fmt"
	"time"

	"github.com/mechcore/firecontrol/internal/game"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "firecontrol.cfg.json"

// ServerConfig holds listener settings.
type ServerConfig struct {
	Address        string        `json:"address" mapstructure:"address"`
	WSAddress      string        `json:"wsAddress" mapstructure:"wsAddress"`
	WSPath         string        `json:"wsPath" mapstructure:"wsPath"`
	InBuffer       int           `json:"inBuffer" mapstructure:"inBuffer"`
	MaxConnections int           `json:"maxConnections" mapstructure:"maxConnections"`
	IdleTimeout    time.Duration `json:"idleTimeout" mapstructure:"idleTimeout"`
	PhaseTimeout   time.Duration `json:"phaseTimeout" mapstructure:"phaseTimeout"`
	Name           string        `json:"name" mapstructure:"name"`
}

// TransportConfig holds frame codec settings.
type TransportConfig struct {
	Marshaller        string `json:"marshaller" mapstructure:"marshaller"`
	CompressThreshold int    `json:"compressThreshold" mapstructure:"compressThreshold"`
	MaxFrameSize      int    `json:"maxFrameSize" mapstructure:"maxFrameSize"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebSocketConfig holds websocket storage backend settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Enabled       bool   `json:"enabled" mapstructure:"enabled"`
	URL           string `json:"url" mapstructure:"url"`
	Token         string `json:"token" mapstructure:"token"`
	Org           string `json:"org" mapstructure:"org"`
	RetentionDays int    `json:"retentionDays" mapstructure:"retentionDays"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; commands that
// run without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Skirmish")
	viper.SetDefault("logsDir", "./fclogs")
	viper.SetDefault("catalog", "")

	viper.SetDefault("server.address", "localhost:7520")
	viper.SetDefault("server.wsAddress", "localhost:7521")
	viper.SetDefault("server.wsPath", "/ws")
	viper.SetDefault("server.inBuffer", 256)
	viper.SetDefault("server.maxConnections", 128)
	viper.SetDefault("server.phaseTimeout", "30s")
	viper.SetDefault("server.name", "firecontrol")
	viper.SetDefault("scenario", "")
	viper.SetDefault("server.idleTimeout", "10m")

	viper.SetDefault("transport.marshaller", "json")
	viper.SetDefault("transport.compressThreshold", 1024)
	viper.SetDefault("transport.maxFrameSize", 4<<20)

	viper.SetDefault("game.seed", 0)
	viper.SetDefault("game.jamRule", string(game.JamCancelBurst))
	viper.SetDefault("game.glancingBlows", false)
	viper.SetDefault("game.directBlows", false)
	viper.SetDefault("game.indirectFire", true)
	viper.SetDefault("game.advancedAMS", false)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "firecontrol")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./battlelogs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "firecontrol-metrics")
	viper.SetDefault("influx.retentionDays", 90)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "firecontrol")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetServerConfig returns the listener settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:        viper.GetString("server.address"),
		WSAddress:      viper.GetString("server.wsAddress"),
		WSPath:         viper.GetString("server.wsPath"),
		InBuffer:       viper.GetInt("server.inBuffer"),
		MaxConnections: viper.GetInt("server.maxConnections"),
		IdleTimeout:    viper.GetDuration("server.idleTimeout"),
		PhaseTimeout:   viper.GetDuration("server.phaseTimeout"),
		Name:           viper.GetString("server.name"),
	}
}

// GetTransportConfig returns the frame codec settings.
func GetTransportConfig() TransportConfig {
	return TransportConfig{
		Marshaller:        viper.GetString("transport.marshaller"),
		CompressThreshold: viper.GetInt("transport.compressThreshold"),
		MaxFrameSize:      viper.GetInt("transport.maxFrameSize"),
	}
}

// GetGameOptions returns the optional rules and validates them.
func GetGameOptions() (game.Options, error) {
	opts := game.Options{
		JamRule:       game.JamRule(viper.GetString("game.jamRule")),
		GlancingBlows: viper.GetBool("game.glancingBlows"),
		DirectBlows:   viper.GetBool("game.directBlows"),
		IndirectFire:  viper.GetBool("game.indirectFire"),
		AdvancedAMS:   viper.GetBool("game.advancedAMS"),
	}
	if err := opts.Validate(); err != nil {
		return game.Options{}, fmt.Errorf("game options: %w", err)
	}
	return opts, nil
}

// GetSeed returns the dice seed. Zero means seed from the clock.
func GetSeed() uint64 {
	return viper.GetUint64("game.seed")
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings. The URL is assembled from
// influx.protocol, influx.host and influx.port.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port")),
		Token:         viper.GetString("influx.token"),
		Org:           viper.GetString("influx.org"),
		RetentionDays: viper.GetInt("influx.retentionDays"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
