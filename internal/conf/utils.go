package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/eyedrop-checker/internal/errors"
)

const appDirName = "eyedrop-checker"

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{
			filepath.Join(homeDir, "AppData", "Roaming", appDirName),
			".",
		}, nil
	}

	return []string{
		filepath.Join(homeDir, ".config", appDirName),
		".",
		filepath.Join("/etc", appDirName),
	}, nil
}

// FindConfigFile returns the first existing config.yaml in the default locations.
func FindConfigFile() (string, error) {
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		candidate := filepath.Join(p, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.NotFound("conf", "config file not found")
}
