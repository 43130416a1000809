package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultDotEnvPaths are tried in order by LoadDotEnv.
var DefaultDotEnvPaths = []string{".env"}

// LoadDotEnv loads the first existing file of paths into the process
// environment without overriding variables that are already set. It returns
// the loaded path, or "" when none exists.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = DefaultDotEnvPaths
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("load %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}
