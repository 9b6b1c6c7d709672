package commands

import (
	"os"
	"path/filepath"

	"github.com/colonyops/refinery/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns refinery.yaml in the working directory, or in
// $XDG_CONFIG_HOME/refinery when only that one exists.
func DefaultConfigPath() string {
	local := config.DefaultConfigPath()
	if _, err := os.Stat(local); err == nil {
		return local
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return local
		}
		configHome = filepath.Join(home, ".config")
	}

	global := filepath.Join(configHome, "refinery", "config.yaml")
	if _, err := os.Stat(global); err == nil {
		return global
	}
	return local
}
