// Command fullnoded is a thin CLI wrapper around node.Config and
// store.ChainStore: parse flags, open the chain store, print the tip,
// exit. It is not a daemon — process lifecycle, signal handling, and P2P
// networking are explicitly out of this module's scope (spec §1) and
// belong to whatever process embeds this library.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/LinuXperia/mako/node"
	"github.com/LinuXperia/mako/node/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "fullnoded:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("fullnoded", flag.ContinueOnError)
	datadir := fs.String("datadir", node.DefaultDataDir(), "chain data directory")
	network := fs.String("network", "mainnet", "network (mainnet)")
	logLevel := fs.String("loglevel", "info", "log level (debug|info|warn|error)")
	quick := fs.Bool("quick-status", false, "print the last-written MANIFEST.json without opening the chain store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := node.DefaultConfig()
	cfg.DataDir = *datadir
	cfg.Network = *network
	cfg.LogLevel = *logLevel
	if err := node.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	genesis, err := genesisFor(cfg.Network)
	if err != nil {
		return err
	}

	if *quick {
		return printQuickStatus(cfg.DataDir, genesis)
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cs, err := store.Open(cfg.DataDir, genesis, log)
	if err != nil {
		return fmt.Errorf("open chain store: %w", err)
	}
	defer func() { _ = cs.Close() }()

	tip, ok := cs.Tip()
	if !ok {
		return fmt.Errorf("chain store has no tip")
	}
	return printJSON(struct {
		Network string `json:"network"`
		Height  uint32 `json:"height"`
		TipHash string `json:"tip_hash"`
		Stats   node.Stats `json:"stats"`
	}{
		Network: cfg.Network,
		Height:  tip.Height,
		TipHash: tip.Hash.String(),
		Stats:   node.ReadStats(),
	})
}

func genesisFor(network string) (store.GenesisParams, error) {
	switch network {
	case "mainnet":
		return store.MainNetGenesis(), nil
	default:
		return store.GenesisParams{}, fmt.Errorf("unsupported network %q (only mainnet is wired)", network)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return cfg.Build()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printQuickStatus(dataDir string, genesis store.GenesisParams) error {
	m, err := store.ReadManifestForCLI(dataDir, genesis.ChainIDHex)
	if err != nil {
		return err
	}
	return printJSON(m)
}
