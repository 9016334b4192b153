package reminder

import "github.com/tphakala/eyedrop-checker/internal/logger"

// GetLogger returns the reminder module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("reminder")
}
