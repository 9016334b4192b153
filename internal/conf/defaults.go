// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/eyedrop-checker/internal/logger"
)

// Default slot times of a fresh install.
const (
	DefaultMorningTime = "08:00"
	DefaultNoonTime    = "12:00"
	DefaultNightTime   = "20:00"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "eyedrop-checker")
	viper.SetDefault("main.locale", "en")
	viper.SetDefault("main.timezone", "Local")
	viper.SetDefault("main.user", "default")
	viper.SetDefault("main.address", "")
	viper.SetDefault("main.log.default_level", logger.DefaultLogLevel)
	viper.SetDefault("main.log.timezone", "Local")
	viper.SetDefault("main.log.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("main.log.console.level", logger.DefaultLogLevel)
	viper.SetDefault("main.log.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("main.log.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("main.log.file_output.level", logger.DefaultLogLevel)
	viper.SetDefault("main.log.file_output.max_size", logger.DefaultMaxSize)
	viper.SetDefault("main.log.file_output.max_age", logger.DefaultMaxAge)
	viper.SetDefault("main.log.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)
	viper.SetDefault("main.log.file_output.compress", false)

	viper.SetDefault("reminder.enabled", true)
	viper.SetDefault("reminder.latitude", 0.0)
	viper.SetDefault("reminder.longitude", 0.0)
	viper.SetDefault("reminder.times.morning", DefaultMorningTime)
	viper.SetDefault("reminder.times.noon", DefaultNoonTime)
	viper.SetDefault("reminder.times.night", DefaultNightTime)

	viper.SetDefault("notification.permission", "granted")
	viper.SetDefault("notification.graceperiod", 5*time.Second)
	viper.SetDefault("notification.presence.foreground", true)
	viper.SetDefault("notification.presence.mobile", false)
	viper.SetDefault("notification.presence.standalone", false)
	viper.SetDefault("notification.console.enabled", true)
	viper.SetDefault("notification.push.enabled", false)
	viper.SetDefault("notification.push.urls", []string{})
	viper.SetDefault("notification.push.timeout", 30*time.Second)
	viper.SetDefault("notification.push.ratelimit", 10)
	viper.SetDefault("notification.push.burst", 3)
	viper.SetDefault("notification.push.dedupwindow", 10*time.Minute)
	viper.SetDefault("notification.push.maxretries", 3)
	viper.SetDefault("notification.push.circuitbreaker.enabled", true)
	viper.SetDefault("notification.push.circuitbreaker.maxfailures", 5)
	viper.SetDefault("notification.push.circuitbreaker.timeout", 30*time.Second)
	viper.SetDefault("notification.push.circuitbreaker.halfopenmaxcalls", 1)

	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.testmode", false)
	viper.SetDefault("monitor.deadline", 5*time.Minute)
	viper.SetDefault("monitor.testdeadline", 30*time.Second)
	viper.SetDefault("monitor.interval", time.Second)
	viper.SetDefault("monitor.pixelthreshold", 30.0)
	viper.SetDefault("monitor.motionratio", 0.05)
	viper.SetDefault("monitor.window", 30*time.Second)
	viper.SetDefault("monitor.minsamples", 3)
	viper.SetDefault("monitor.highintensity", 50.0)
	viper.SetDefault("monitor.snapshot.url", "")
	viper.SetDefault("monitor.snapshot.timeout", 5*time.Second)
	viper.SetDefault("monitor.snapshot.retries", 2)

	viper.SetDefault("family.enabled", false)
	viper.SetDefault("family.broker", "tcp://localhost:1883")
	viper.SetDefault("family.clientid", "")
	viper.SetDefault("family.topicprefix", "eyedrop-checker")
	viper.SetDefault("family.qos", 1)

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.path", "eyedrop-checker.db")
	viper.SetDefault("storage.namespace", "")
	viper.SetDefault("storage.mysql.host", "localhost")
	viper.SetDefault("storage.mysql.port", 3306)
	viper.SetDefault("storage.mysql.database", "eyedrop")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", ":8080")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
	viper.SetDefault("telemetry.environment", "production")
}
