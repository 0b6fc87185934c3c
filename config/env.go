package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvSfdxCmd  = "SFDX_CMD"
	EnvLogLevel = "LOG_LEVEL"
)

// LoadEnv loads a dotenv file into the process environment. A missing file is
// not an error; variables already set in the environment win.
func LoadEnv(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("env load failed (%s): %w", path, err)
	}
	return true, nil
}

// SfdxCommand returns the CLI executable override, or "" for the default.
func SfdxCommand() string {
	return strings.TrimSpace(os.Getenv(EnvSfdxCmd))
}

func LogLevel() string {
	return strings.TrimSpace(os.Getenv(EnvLogLevel))
}
