package node

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateConfigOK(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateConfigRejectsBadNetwork(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network = "bogusnet"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateConfigRejectsEmptyDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = ""
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateConfigRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateConfigRejectsZeroWindows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecentWindow = 0
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error for zero recent_window")
	}

	cfg = DefaultConfig()
	cfg.FsyncHeightInterval = 0
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error for zero fsync_height_interval")
	}
}

func TestLoadConfigFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := DefaultConfig()
	want.Network = "testnet"
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := LoadConfigFile(dir, "config.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Network != "testnet" {
		t.Fatalf("network = %q, want testnet", got.Network)
	}
}

func TestLoadConfigFileRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfigFile(dir, "../escape.json"); err == nil {
		t.Fatalf("expected error for traversal name")
	}
}
