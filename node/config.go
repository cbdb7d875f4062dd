// Package node carries the ambient, non-consensus-critical surface a
// process wraps ChainStore/CompactBlockCodec in: network parameter
// selection, datadir layout, and a read-only self-diagnostic. Process
// lifecycle, P2P framing, and peer state machines are explicitly out of
// scope (spec §1) and live outside this module entirely.
package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Config is the subset of node configuration the CLI wrapper needs:
// where to store chain data, which network's genesis and consensus
// constants apply, and the fsync-policy time windows of spec §4.3.7.
type Config struct {
	Network  string        `json:"network"`
	DataDir  string        `json:"data_dir"`
	LogLevel string        `json:"log_level"`

	// RecentWindow and FsyncHeightInterval mirror should_sync's two
	// non-clock-availability conditions (spec §4.3.7): a block within
	// RecentWindow of now, or every FsyncHeightInterval-th block. They are
	// validated here, but store.Open takes no Config: ChainStore's fsync
	// policy uses its own fixed 24h and 1000-block thresholds and does not
	// read these fields.
	RecentWindow        time.Duration `json:"recent_window"`
	FsyncHeightInterval uint32        `json:"fsync_height_interval"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var allowedNetworks = map[string]struct{}{
	"mainnet": {},
	"testnet": {},
	"regtest": {},
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".fullnode"
	}
	return filepath.Join(home, ".fullnode")
}

// DefaultConfig returns mainnet defaults matching spec §4.3.7's literal
// 24h/1000-block thresholds.
func DefaultConfig() Config {
	return Config{
		Network:             "mainnet",
		DataDir:             DefaultDataDir(),
		LogLevel:            "info",
		RecentWindow:        24 * time.Hour,
		FsyncHeightInterval: 1000,
	}
}

func ValidateConfig(cfg Config) error {
	if _, ok := allowedNetworks[strings.ToLower(strings.TrimSpace(cfg.Network))]; !ok {
		return fmt.Errorf("invalid network %q", cfg.Network)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.RecentWindow <= 0 {
		return errors.New("recent_window must be > 0")
	}
	if cfg.FsyncHeightInterval == 0 {
		return errors.New("fsync_height_interval must be > 0")
	}
	return nil
}

// LoadConfigFile reads and parses a JSON config file from dataDir by
// name, using the path-traversal-safe reader so a malformed/hostile
// --config flag value can't escape the data directory.
func LoadConfigFile(dataDir, name string) (Config, error) {
	raw, err := readFileFromDir(dataDir, name)
	if err != nil {
		return Config{}, fmt.Errorf("node: read config %s: %w", name, err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("node: parse config %s: %w", name, err)
	}
	return cfg, nil
}

// Stats is a read-only process self-diagnostic (grounded on the
// reference implementation's io/unix/ps.c RSS/CPU sampler): it mutates
// nothing and exists purely for operational visibility, not for the
// process lifecycle control spec.md's Non-goals exclude.
type Stats struct {
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`
	NumGC      uint32 `json:"num_gc"`
	HeapAlloc  uint64 `json:"heap_alloc_bytes"`
	NumGoroutine int  `json:"num_goroutines"`
}

func ReadStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGC:        m.NumGC,
		HeapAlloc:    m.HeapAlloc,
		NumGoroutine: runtime.NumGoroutine(),
	}
}
