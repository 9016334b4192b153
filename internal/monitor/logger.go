package monitor

import "github.com/tphakala/eyedrop-checker/internal/logger"

// GetLogger returns the module logger for motion monitoring
func GetLogger() logger.Logger {
	return logger.Global().Module("monitor")
}
