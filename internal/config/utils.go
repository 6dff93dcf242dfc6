package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Paintersrp/recall/internal/constants"
)

func GetConfigPath(homeDir string) string {
	return filepath.Join(
		homeDir,
		constants.ConfigDir,
		constants.ConfigFile+"."+constants.ConfigFileType,
	)
}

func EnsureConfigExists(homeDir string) error {
	configPath := GetConfigPath(homeDir)
	configDir := filepath.Dir(configPath)

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.SetHome(homeDir)
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check config file existence: %w", err)
	}

	cfg, err := Load(homeDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	paths := cfg.ResolvedPaths()
	required := map[string]string{
		"server.addr":     cfg.Server.Addr,
		"paths.workspace": paths.Workspace,
		"paths.sessions":  paths.Sessions,
	}

	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return &ConfigInitError{
				msg: fmt.Sprintf("required config variable %q is not set", name),
			}
		}
	}

	return nil
}

// ParseLevel maps a textual log level onto slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, &ConfigInitError{
			msg: fmt.Sprintf("invalid log level: %q. Please choose from 'debug', 'info', 'warn', or 'error'", level),
		}
	}
}
