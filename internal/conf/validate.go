// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Storage backend names
const (
	StorageSQLite = "sqlite"
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	collect := func(err error) {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	collect(validateMainSettings(settings))
	collect(validateReminderSettings(&settings.Reminder))
	collect(validateNotificationSettings(&settings.Notification))
	collect(validateMonitorSettings(&settings.Monitor))
	collect(validateFamilySettings(&settings.Family))
	collect(validateStorageSettings(&settings.Storage))
	collect(validateTelemetrySettings(&settings.Telemetry))

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateMainSettings(settings *Settings) error {
	var errs []string
	if settings.Main.User == "" {
		errs = append(errs, "main.user must not be empty")
	}
	if _, err := settings.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("main.timezone: %v", err))
	}
	switch strings.ToLower(settings.Main.Locale) {
	case "en", "ja":
	default:
		errs = append(errs, fmt.Sprintf("main.locale %q is not supported (en, ja)", settings.Main.Locale))
	}
	return joinErrs("main", errs)
}

// Slot times are either "HH:MM" or "<event>[+-]<duration>" where event is a sun event.
var (
	clockPattern    = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	sunEventPattern = regexp.MustCompile(`^(sunrise|sunset|dawn|dusk)([+-]\d+[hms](\d+[ms])?)?$`)
)

// ValidSlotTime reports whether expr is a clock time or a sun-relative expression.
func ValidSlotTime(expr string) bool {
	return clockPattern.MatchString(expr) || sunEventPattern.MatchString(expr)
}

func validateReminderSettings(settings *ReminderSettings) error {
	var errs []string
	for name, expr := range map[string]string{
		"morning": settings.Times.Morning,
		"noon":    settings.Times.Noon,
		"night":   settings.Times.Night,
	} {
		if !ValidSlotTime(expr) {
			errs = append(errs, fmt.Sprintf("times.%s %q must be HH:MM or a sun event such as sunrise+30m", name, expr))
		}
	}
	if settings.Latitude < -90 || settings.Latitude > 90 {
		errs = append(errs, "latitude must be between -90 and 90")
	}
	if settings.Longitude < -180 || settings.Longitude > 180 {
		errs = append(errs, "longitude must be between -180 and 180")
	}
	return joinErrs("reminder", errs)
}

func validateNotificationSettings(settings *NotificationSettings) error {
	var errs []string
	switch settings.Permission {
	case "granted", "denied", "default":
	default:
		errs = append(errs, fmt.Sprintf("permission %q must be granted, denied or default", settings.Permission))
	}
	if settings.GracePeriod <= 0 {
		errs = append(errs, "graceperiod must be positive")
	}
	if settings.Push.Enabled {
		if len(settings.Push.URLs) == 0 {
			errs = append(errs, "push.urls must not be empty when push is enabled")
		}
		for _, u := range settings.Push.URLs {
			if !strings.Contains(u, "://") {
				errs = append(errs, fmt.Sprintf("push url %q is not a service URL", u))
			}
		}
		if settings.Push.RateLimit < 0 || settings.Push.Burst < 0 {
			errs = append(errs, "push.ratelimit and push.burst must not be negative")
		}
	}
	return joinErrs("notification", errs)
}

func validateMonitorSettings(settings *MonitorSettings) error {
	var errs []string
	if settings.Deadline <= 0 || settings.TestDeadline <= 0 {
		errs = append(errs, "deadline and testdeadline must be positive")
	}
	if settings.Interval <= 0 {
		errs = append(errs, "interval must be positive")
	}
	if settings.PixelThreshold < 0 || settings.PixelThreshold > 255 {
		errs = append(errs, "pixelthreshold must be between 0 and 255")
	}
	if settings.MotionRatio < 0 || settings.MotionRatio > 1 {
		errs = append(errs, "motionratio must be between 0 and 1")
	}
	if settings.Window <= 0 {
		errs = append(errs, "window must be positive")
	}
	if settings.MinSamples < 1 {
		errs = append(errs, "minsamples must be at least 1")
	}
	if settings.Snapshot.URL != "" {
		if u, err := url.Parse(settings.Snapshot.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("snapshot.url %q must be an http(s) URL", settings.Snapshot.URL))
		}
	}
	return joinErrs("monitor", errs)
}

func validateFamilySettings(settings *FamilySettings) error {
	if !settings.Enabled {
		return nil
	}
	var errs []string
	if settings.Broker == "" {
		errs = append(errs, "broker must be set when family messaging is enabled")
	}
	if settings.TopicPrefix == "" || strings.ContainsAny(settings.TopicPrefix, "#+") {
		errs = append(errs, "topicprefix must be non-empty and free of wildcards")
	}
	if settings.QoS < 0 || settings.QoS > 2 {
		errs = append(errs, "qos must be 0, 1 or 2")
	}
	return joinErrs("family", errs)
}

func validateStorageSettings(settings *StorageSettings) error {
	var errs []string
	switch settings.Type {
	case StorageSQLite:
		if settings.Path == "" {
			errs = append(errs, "path must be set for sqlite")
		}
	case StorageMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			errs = append(errs, "mysql.host and mysql.database must be set for mysql")
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Sprintf("type %q must be sqlite, mysql or memory", settings.Type))
	}
	return joinErrs("storage", errs)
}

func validateTelemetrySettings(settings *TelemetrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("telemetry: dsn must be set when telemetry is enabled")
	}
	return nil
}

func joinErrs(section string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", section, strings.Join(errs, "; "))
}
