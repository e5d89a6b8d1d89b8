package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file read from the data directory.
const FileName = "fieldforge.cfg.json"

// FieldConfig holds simulation limits.
type FieldConfig struct {
	MaxPerPlayer int     `json:"maxPerPlayer" mapstructure:"maxPerPlayer"`
	MaxForce     float64 `json:"maxForce" mapstructure:"maxForce"`
	TickRate     int     `json:"tickRate" mapstructure:"tickRate"`
	// Admins lists player UUIDs holding the administrative override.
	Admins []string `json:"admins" mapstructure:"admins"`
}

// TickInterval converts the tick rate to a ticker period.
func (c FieldConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(c.TickRate)
}

// RenderConfig controls particle and sound feedback.
type RenderConfig struct {
	ParticleDensity  float64           `json:"particleDensity" mapstructure:"particleDensity"`
	ParticleInterval int               `json:"particleInterval" mapstructure:"particleInterval"`
	SoundInterval    int               `json:"soundInterval" mapstructure:"soundInterval"`
	VortexLeaves     bool              `json:"vortexLeaves" mapstructure:"vortexLeaves"`
	ParticleTypes    map[string]string `json:"particleTypes" mapstructure:"particleTypes"`
	SoundEffects     map[string]string `json:"soundEffects" mapstructure:"soundEffects"`
}

// FileStoreConfig holds the YAML store settings.
type FileStoreConfig struct {
	Name string `json:"name" mapstructure:"name"`
}

// SQLiteConfig holds the SQLite store settings.
type SQLiteConfig struct {
	Name string `json:"name" mapstructure:"name"`
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN formats the settings for the postgres driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// StorageConfig selects and configures the persistent store.
type StorageConfig struct {
	Type             string          `json:"type" mapstructure:"type"`
	Dir              string          `json:"-" mapstructure:"-"`
	File             FileStoreConfig `json:"file" mapstructure:"file"`
	SQLite           SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	DB               DBConfig        `json:"-" mapstructure:"-"`
	AutosaveInterval time.Duration   `json:"autosaveInterval" mapstructure:"autosaveInterval"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// StreamConfig holds the WebSocket event stream settings.
type StreamConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// ServerURL joins protocol, host and port.
func (c InfluxConfig) ServerURL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds the GELF sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./fieldlogs")
	viper.SetDefault("dataDir", "./plugins/FieldForge")

	viper.SetDefault("fields.maxPerPlayer", 3)
	viper.SetDefault("fields.maxForce", 5.0)
	viper.SetDefault("fields.tickRate", 20)
	viper.SetDefault("fields.admins", []string{})

	viper.SetDefault("render.particleDensity", 0.5)
	viper.SetDefault("render.particleInterval", 5)
	viper.SetDefault("render.soundInterval", 20)
	viper.SetDefault("render.vortexLeaves", true)
	for _, kind := range []string{"radial", "linear", "vortex"} {
		viper.SetDefault("render.particleTypes."+kind, "electric_spark")
		viper.SetDefault("render.soundEffects."+kind, "minecraft:entity.ender_eye.ambient")
	}

	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.file.name", "fields.yml")
	viper.SetDefault("storage.sqlite.name", "fields.db")
	viper.SetDefault("storage.autosaveInterval", "5m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fieldforge")

	viper.SetDefault("events.bufferSize", 1024)

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("stream.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "fieldforge")
	viper.SetDefault("influx.bucket", "fieldforge")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fieldforge")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// Defaults stay in effect when the file is missing.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	return nil
}

// Reload re-reads the config file that Load found.
func Reload() error {
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reloading config file: %v", err)
	}
	return nil
}

func GetString(key string) string {
	return viper.GetString(key)
}

func GetInt(key string) int {
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFieldConfig returns the simulation limits.
func GetFieldConfig() FieldConfig {
	return FieldConfig{
		MaxPerPlayer: viper.GetInt("fields.maxPerPlayer"),
		MaxForce:     viper.GetFloat64("fields.maxForce"),
		TickRate:     viper.GetInt("fields.tickRate"),
		Admins:       viper.GetStringSlice("fields.admins"),
	}
}

// GetRenderConfig returns the particle and sound settings.
func GetRenderConfig() RenderConfig {
	return RenderConfig{
		ParticleDensity:  viper.GetFloat64("render.particleDensity"),
		ParticleInterval: viper.GetInt("render.particleInterval"),
		SoundInterval:    viper.GetInt("render.soundInterval"),
		VortexLeaves:     viper.GetBool("render.vortexLeaves"),
		ParticleTypes:    viper.GetStringMapString("render.particleTypes"),
		SoundEffects:     viper.GetStringMapString("render.soundEffects"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:             viper.GetString("storage.type"),
		Dir:              viper.GetString("dataDir"),
		File:             FileStoreConfig{Name: viper.GetString("storage.file.name")},
		SQLite:           SQLiteConfig{Name: viper.GetString("storage.sqlite.name")},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		AutosaveInterval: viper.GetDuration("storage.autosaveInterval"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled: viper.GetBool("stream.enabled"),
		URL:     viper.GetString("stream.url"),
		Secret:  viper.GetString("stream.secret"),
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
