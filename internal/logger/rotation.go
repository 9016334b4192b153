package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logDirPermissions = 0o700

// newRotatingWriter opens path through lumberjack using the rotation limits from
// defaults. A nil defaults falls back to the package constants.
func newRotatingWriter(path string, defaults *FileOutput) (io.WriteCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := ensureFileDirectory(path); err != nil {
		return nil, err
	}

	maxSize, maxAge, maxBackups, compress := DefaultMaxSize, DefaultMaxAge, DefaultMaxRotatedFiles, false
	if defaults != nil {
		if defaults.MaxSize > 0 {
			maxSize = defaults.MaxSize
		}
		maxAge = defaults.MaxAge
		maxBackups = defaults.MaxRotatedFiles
		compress = defaults.Compress
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxAge:     maxAge,
		MaxBackups: maxBackups,
		Compress:   compress,
		LocalTime:  true,
	}, nil
}

func ensureFileDirectory(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == filePath {
		return nil
	}
	if err := os.MkdirAll(dir, logDirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
