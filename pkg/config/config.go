// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/qnkhuat/chessmon/pkg/weather"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Server is the match server configuration.
type Server struct {
	Addr    string `env:"CHESSMON_ADDR" envDefault:"0.0.0.0:1998"`
	SSHAddr string `env:"CHESSMON_SSH_ADDR" envDefault:"0.0.0.0:2022"`
	WSAddr  string `env:"CHESSMON_WS_ADDR" envDefault:"0.0.0.0:8080"`
	LogFile string `env:"CHESSMON_LOG_FILE" envDefault:"log.txt"`

	// MatchClock is each color's thinking time.
	MatchClock    time.Duration `env:"CHESSMON_MATCH_CLOCK" envDefault:"20m"`
	BattleTimeout time.Duration `env:"CHESSMON_BATTLE_TIMEOUT" envDefault:"30s"`
	IdleTimeout   time.Duration `env:"CHESSMON_IDLE_TIMEOUT" envDefault:"30m"`
	// Draft has players pick combatants from a pool instead of dealing
	// random teams.
	Draft bool `env:"CHESSMON_DRAFT"`

	Simulator Simulator `envPrefix:"CHESSMON_SIM_"`
	Modifiers Modifiers `envPrefix:"CHESSMON_MODIFIERS_"`
	Storage   Storage   `envPrefix:"CHESSMON_STORE_"`
	SSH       SSH       `envPrefix:"CHESSMON_SSH_"`
	Telemetry Telemetry `envPrefix:"CHESSMON_OTEL_"`
}

// Simulator locates the battle simulator.
type Simulator struct {
	Command []string `env:"COMMAND" envSeparator:" " envDefault:"pokemon-showdown simulate-battle"`
	Dir     string   `env:"DIR"`
	Format  string   `env:"FORMAT" envDefault:"gen9customgame"`
}

// Modifiers tunes the square modifier lifecycle.
type Modifiers struct {
	Initial           int `env:"INITIAL" envDefault:"8"`
	TargetLow         int `env:"TARGET_LOW" envDefault:"6"`
	TargetHigh        int `env:"TARGET_HIGH" envDefault:"14"`
	ResampleEvery     int `env:"RESAMPLE_EVERY" envDefault:"10"`
	MinDuration       int `env:"MIN_DURATION" envDefault:"5"`
	MaxDuration       int `env:"MAX_DURATION" envDefault:"15"`
	WriteBackDuration int `env:"WRITE_BACK_DURATION" envDefault:"5"`
}

// Lifecycle converts the knobs to a lifecycle configuration.
func (m Modifiers) Lifecycle() weather.LifecycleConfig {
	return weather.LifecycleConfig{
		Initial:       m.Initial,
		TargetLow:     m.TargetLow,
		TargetHigh:    m.TargetHigh,
		ResampleEvery: m.ResampleEvery,
	}
}

// Storage locates the SQLite database. An empty path disables persistence.
type Storage struct {
	Path string `env:"PATH" envDefault:"chessmon.db"`
}

// SSH configures the ssh front door.
type SSH struct {
	HostKey string `env:"HOST_KEY" envDefault:"chessmon_host_key"`
	Client  string `env:"CLIENT" envDefault:"chessmon"`
}

// Telemetry enables trace export. Tracing is off without an endpoint.
type Telemetry struct {
	Endpoint string `env:"ENDPOINT"`
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
}

// LoadServer parses a Server from the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.Modifiers.TargetHigh < cfg.Modifiers.TargetLow {
		return Server{}, fmt.Errorf("modifier target band [%d, %d) is empty", cfg.Modifiers.TargetLow, cfg.Modifiers.TargetHigh)
	}
	if cfg.Modifiers.MaxDuration < cfg.Modifiers.MinDuration {
		return Server{}, fmt.Errorf("modifier duration band [%d, %d] is empty", cfg.Modifiers.MinDuration, cfg.Modifiers.MaxDuration)
	}
	return cfg, nil
}

// Client is the terminal client configuration.
type Client struct {
	Server  string `env:"CHESSMON_SERVER" envDefault:"localhost:1998"`
	LogFile string `env:"CHESSMON_CLIENT_LOG" envDefault:"client.log"`
}
