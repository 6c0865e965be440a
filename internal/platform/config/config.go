package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds environment-driven settings. The device-host handshake
// parameters (port, plugin UUID, register event) arrive as command-line
// flags dictated by the host and are parsed in main, not here.
type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// DebugAddr enables the local debug/metrics server when non-empty,
	// e.g. "127.0.0.1:9180".
	DebugAddr string `env:"DEBUG_ADDR"`

	// RestartTaskName is the scheduled task triggered for elevation-free
	// relaunches when the bypass option is enabled.
	RestartTaskName string `env:"RESTART_TASK_NAME" default:"FanControl Restart"`

	// RestartHelperScript is the helper script looked up beside the
	// executable; when present it is preferred over triggering the task
	// directly.
	RestartHelperScript string `env:"RESTART_HELPER_SCRIPT" default:"RestartFanControl.cmd"`

	// ExecutableName is the expected file name of the controlled
	// application's executable, used to validate user-picked paths.
	ExecutableName string `env:"FANCONTROL_EXECUTABLE" default:"FanControl.exe"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.RestartTaskName == "" {
		return fmt.Errorf("RESTART_TASK_NAME is required")
	}
	if cfg.ExecutableName == "" {
		return fmt.Errorf("FANCONTROL_EXECUTABLE is required")
	}
	return nil
}
