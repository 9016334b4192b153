// Package conf provides configuration management for eyedrop-checker.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root of the daemon configuration.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name     string               // instance name shown in notifications
		Locale   string               // message language, "en" or "ja"
		Timezone string               // location used for date keys and slot times, "Local" or IANA name
		User     string               // acting user id, owner of the family registry
		Address  string               // messaging address of the acting user
		Log      logger.LoggingConfig // logging configuration
	}

	Reminder     ReminderSettings
	Notification NotificationSettings
	Monitor      MonitorSettings
	Family       FamilySettings
	Storage      StorageSettings
	WebServer    WebServerSettings
	Telemetry    TelemetrySettings
}

// ReminderSettings configures the slot scheduler.
type ReminderSettings struct {
	Enabled   bool    // true to run the scheduler loop
	Latitude  float64 // used by sun-relative slot times such as "sunrise+30m"
	Longitude float64
	Times     SlotTimes // initial slot times, written to storage on first start
}

// SlotTimes holds one time expression per slot.
type SlotTimes struct {
	Morning string // "HH:MM" or sun-relative expression
	Noon    string
	Night   string
}

// NotificationSettings configures the dispatcher and its channels.
type NotificationSettings struct {
	Permission  string        // initial permission state: granted, denied or default
	GracePeriod time.Duration // how long a foreground notification may stay unshown before the banner fallback
	Presence    PresenceSettings
	Console     ConsoleSettings
	Push        PushSettings
}

// PresenceSettings seeds the environment used for every dispatch until the shell reports otherwise.
type PresenceSettings struct {
	Foreground bool // shell is focused
	Mobile     bool // shell runs on a mobile form factor
	Standalone bool // shell runs as an installed app
}

// ConsoleSettings controls the terminal presenter of local notices.
type ConsoleSettings struct {
	Enabled bool // print local notices to stdout and acknowledge them as shown
}

// PushSettings configures the background push channel.
type PushSettings struct {
	Enabled        bool          // true to enable the background channel
	URLs           []string      // shoutrrr service URLs
	Timeout        time.Duration // per-send timeout
	RateLimit      int           // maximum sends per minute, 0 disables limiting
	Burst          int           // burst size for the rate limiter
	DedupWindow    time.Duration // window in which a repeated tag is not re-sent
	MaxRetries     int           // send attempts per message
	CircuitBreaker CircuitBreakerSettings
}

// CircuitBreakerSettings configures the push circuit breaker.
type CircuitBreakerSettings struct {
	Enabled          bool
	MaxFailures      int           // consecutive failures before opening
	Timeout          time.Duration // time spent open before a half-open probe
	HalfOpenMaxCalls int           // probes allowed while half-open
}

// MonitorSettings configures motion monitoring.
type MonitorSettings struct {
	Enabled        bool          // true to start a monitoring session with the daemon
	TestMode       bool          // use TestDeadline instead of Deadline
	Deadline       time.Duration // no-motion deadline
	TestDeadline   time.Duration // no-motion deadline in test mode
	Interval       time.Duration // sampling interval
	PixelThreshold float64       // per-pixel mean channel difference counted as changed
	MotionRatio    float64       // changed-pixel ratio above which a frame has motion
	Window         time.Duration // classifier history window
	MinSamples     int           // minimum samples in window to qualify
	HighIntensity  float64       // intensity separating large and small motion
	Snapshot       SnapshotSettings
}

// SnapshotSettings configures the HTTP snapshot capture source.
type SnapshotSettings struct {
	URL      string        // JPEG or PNG snapshot URL
	Timeout  time.Duration // request timeout
	Username string        // optional basic auth
	Password string
	Retries  int // attempts per snapshot
}

// FamilySettings configures escalation messaging.
type FamilySettings struct {
	Enabled     bool   // true to publish and subscribe over MQTT
	Broker      string // MQTT broker (tcp://host:port)
	ClientID    string // MQTT client id, generated when empty
	TopicPrefix string // topics are <prefix>/inbox/<address>
	Username    string
	Password    string
	QoS         int // 0, 1 or 2
}

// StorageSettings selects the persistence backend.
type StorageSettings struct {
	Type      string // sqlite, mysql or memory
	Path      string // sqlite database file
	Namespace string // optional key prefix, usually the user id
	MySQL     MySQLSettings
}

// MySQLSettings holds connection settings for the mysql backend.
type MySQLSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// WebServerSettings configures the HTTP shell API.
type WebServerSettings struct {
	Enabled bool   // true to serve the HTTP API
	Listen  string // address to listen on
}

// TelemetrySettings configures error telemetry.
type TelemetrySettings struct {
	Enabled     bool   // true to report errors to Sentry
	DSN         string // Sentry DSN
	Environment string
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	loadedFromFile   string
)

// Load reads the configuration file and environment variables into a Settings.
// An empty configPath searches the default locations and writes a default file
// to the first of them when none exists.
func Load(configPath string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configPath); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	loadedFromFile = viper.ConfigFileUsed()
	return settings, nil
}

func initViper(configPath string) error {
	viper.Reset()
	viper.SetConfigType("yaml")
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment overrides ignored", logger.Error(err))
	}

	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryFileIO).
				Context("path", configPath).
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, p := range paths {
		viper.AddConfigPath(p)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(paths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")
	if err := WriteDefaultConfig(configPath); err != nil {
		// Defaults are already set; run without a file.
		GetLogger().Warn("could not write default config", logger.String("path", configPath), logger.Error(err))
		return nil
	}
	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// WriteDefaultConfig writes the embedded default configuration to path. An existing
// file is never overwritten.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("config file %s already exists", path).
			Component("conf").
			Category(errors.CategoryConflict).
			Build()
	}
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return nil
}

// GetSettings returns the settings loaded by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path of the file read by the last Load, if any.
func ConfigFileUsed() string {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return loadedFromFile
}

// SaveYAMLConfig writes settings to configPath through a temporary file and rename.
// Comments and ordering of the previous file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", configPath).
			Build()
	}
	return nil
}

// Location resolves Main.Timezone.
func (s *Settings) Location() (*time.Location, error) {
	switch s.Main.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(s.Main.Timezone)
	}
}

// ActiveDeadline returns the no-motion deadline for the configured mode.
func (m *MonitorSettings) ActiveDeadline(testMode bool) time.Duration {
	if testMode {
		return m.TestDeadline
	}
	return m.Deadline
}
