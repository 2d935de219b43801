package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server: %v", err)
	}
	if cfg.Addr != "0.0.0.0:1998" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.BattleTimeout != 30*time.Second {
		t.Fatalf("battle timeout = %v", cfg.BattleTimeout)
	}
	if len(cfg.Simulator.Command) != 2 || cfg.Simulator.Command[1] != "simulate-battle" {
		t.Fatalf("simulator command = %q", cfg.Simulator.Command)
	}
	lc := cfg.Modifiers.Lifecycle()
	if lc.TargetLow != 6 || lc.TargetHigh != 14 || lc.ResampleEvery != 10 {
		t.Fatalf("lifecycle = %+v", lc)
	}
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("CHESSMON_MODIFIERS_TARGET_LOW", "2")
	t.Setenv("CHESSMON_MODIFIERS_TARGET_HIGH", "4")
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server: %v", err)
	}
	if cfg.Modifiers.TargetLow != 2 || cfg.Modifiers.TargetHigh != 4 {
		t.Fatalf("modifiers = %+v", cfg.Modifiers)
	}
}

func TestLoadServerRejectsEmptyBand(t *testing.T) {
	t.Setenv("CHESSMON_MODIFIERS_TARGET_LOW", "9")
	t.Setenv("CHESSMON_MODIFIERS_TARGET_HIGH", "3")
	if _, err := LoadServer(); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("CHESSMON_BATTLE_TIMEOUT", "soon")
	var cfg Server
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
