package conf

import "github.com/tphakala/eyedrop-checker/internal/logger"

// GetLogger returns the config package logger. It is fetched from the global logger
// on every call because the central logger is installed after configuration loads.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
