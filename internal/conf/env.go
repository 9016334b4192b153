// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"main.locale", "EYEDROP_LOCALE", validateEnvLocale},
		{"main.timezone", "EYEDROP_TIMEZONE", validateEnvTimezone},
		{"main.user", "EYEDROP_USER", nil},
		{"main.address", "EYEDROP_ADDRESS", nil},
		{"main.log.default_level", "EYEDROP_LOG_LEVEL", validateEnvLogLevel},

		{"reminder.latitude", "EYEDROP_LATITUDE", validateEnvLatitude},
		{"reminder.longitude", "EYEDROP_LONGITUDE", validateEnvLongitude},

		{"notification.permission", "EYEDROP_NOTIFICATION_PERMISSION", validateEnvPermission},
		{"notification.push.enabled", "EYEDROP_PUSH_ENABLED", validateEnvBool},

		{"monitor.enabled", "EYEDROP_MONITOR_ENABLED", validateEnvBool},
		{"monitor.testmode", "EYEDROP_MONITOR_TESTMODE", validateEnvBool},
		{"monitor.deadline", "EYEDROP_MONITOR_DEADLINE", validateEnvDuration},
		{"monitor.snapshot.url", "EYEDROP_SNAPSHOT_URL", nil},

		{"family.enabled", "EYEDROP_FAMILY_ENABLED", validateEnvBool},
		{"family.broker", "EYEDROP_MQTT_BROKER", nil},
		{"family.username", "EYEDROP_MQTT_USERNAME", nil},
		{"family.password", "EYEDROP_MQTT_PASSWORD", nil},

		{"storage.type", "EYEDROP_STORAGE_TYPE", validateEnvStorageType},
		{"storage.path", "EYEDROP_STORAGE_PATH", nil},
		{"storage.mysql.password", "EYEDROP_MYSQL_PASSWORD", nil},

		{"webserver.listen", "EYEDROP_LISTEN", nil},

		{"telemetry.enabled", "EYEDROP_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", "EYEDROP_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every variable and reports invalid values. Invalid values are
// still bound; ValidateSettings rejects them after unmarshalling.
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s'", value)
	}
	return nil
}

var localePattern = regexp.MustCompile(`(?i)^[a-z]{2}(-[a-z]{2})?$`)

func validateEnvLocale(value string) error {
	if !localePattern.MatchString(value) {
		return fmt.Errorf("locale must match pattern 'xx' or 'xx-xx', got: '%s'", value)
	}
	return nil
}

func validateEnvTimezone(value string) error {
	if value == "Local" {
		return nil
	}
	_, err := time.LoadLocation(value)
	return err
}

func validateEnvLogLevel(value string) error {
	switch value {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown log level '%s'", value)
}

func validateEnvLatitude(value string) error {
	lat, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %g", lat)
	}
	return nil
}

func validateEnvLongitude(value string) error {
	lng, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid longitude: %w", err)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %g", lng)
	}
	return nil
}

func validateEnvPermission(value string) error {
	switch value {
	case "granted", "denied", "default":
		return nil
	}
	return fmt.Errorf("permission must be granted, denied or default, got '%s'", value)
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvStorageType(value string) error {
	switch value {
	case StorageSQLite, StorageMySQL, StorageMemory:
		return nil
	}
	return fmt.Errorf("storage type must be sqlite, mysql or memory, got '%s'", value)
}
