package motion

import "github.com/tphakala/eyedrop-checker/internal/logger"

// GetLogger returns the motion module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("motion")
}
