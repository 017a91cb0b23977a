package main

import (
	"testing"
	"time"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/config"
)

func TestParseFlags(t *testing.T) {
	opts, _, err := parseFlags([]string{"--config", "client.yaml", "--login", "ann", "--password", "secret"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.ConfigPath != "client.yaml" || opts.Login != "ann" || opts.Password != "secret" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestParseFlagsRejects(t *testing.T) {
	tests := [][]string{
		{"--login", "ann"},
		{"stray"},
		{"--bogus"},
	}
	for _, args := range tests {
		if _, _, err := parseFlags(args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestParseFlagsHelp(t *testing.T) {
	opts, _, err := parseFlags([]string{"-h"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !opts.Help {
		t.Fatal("expected help requested")
	}
}

func TestManagerConfigFromSettings(t *testing.T) {
	cfg := config.Default()
	cfg.ServerURL = "https://maze.example.com"
	cfg.ReconnectBackoff = 3 * time.Second

	got, err := managerConfig(cfg)
	if err != nil {
		t.Fatalf("managerConfig: %v", err)
	}
	if got.URL != "wss://maze.example.com/game" {
		t.Fatalf("expected wss url, got %s", got.URL)
	}
	if got.ReconnectBackoff != 3*time.Second || got.MaxRetries != cfg.MaxRetries {
		t.Fatalf("unexpected manager config %+v", got)
	}
	if got.Clock == nil {
		t.Fatal("expected a clock")
	}

	ws := webSocketConfig(cfg)
	if ws.ReadTimeout != cfg.ReadTimeout || ws.WriteTimeout != cfg.WriteTimeout {
		t.Fatalf("unexpected websocket config %+v", ws)
	}
}
