package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"htlcnet/config"
	"htlcnet/core"
	"htlcnet/observability/logging"
	"htlcnet/rpc"
	"htlcnet/storage"
)

const envName = "HTLCD_ENV"

func main() {
	configFile := flag.String("config", "./htlcd.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis balances JSON file (overrides config GenesisFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envName))
	logger := logging.Setup("htlcd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	operator, err := parseAddress(cfg.OperatorAddress)
	if err != nil {
		logger.Error("invalid operator address", "err", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "registry"))
	if err != nil {
		logger.Error("failed to open registry database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	heights := core.NewIntervalHeightSource(time.Unix(0, 0), time.Duration(cfg.BlockIntervalSeconds)*time.Second)
	node, err := core.NewNode(db, operator, heights)
	if err != nil {
		logger.Error("failed to initialise node", "err", err)
		os.Exit(1)
	}

	genesisPath := strings.TrimSpace(*genesisFlag)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	if genesisPath != "" {
		if err := seedGenesis(node, genesisPath); err != nil {
			logger.Error("failed to seed genesis balances", "err", err)
			os.Exit(1)
		}
		logger.Info("genesis balances seeded", "path", genesisPath)
	}

	server := rpc.NewServer(node, cfg.AuthToken, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ListenAddress)
	}()
	logger.Info("htlcd started", "network", cfg.NetworkName, "height", node.Height())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("rpc server stopped", "err", err)
		os.Exit(1)
	}
}

// seedGenesis credits balances from a JSON object of address → decimal amount.
// Seeding is idempotent only in the sense that rerunning re-credits; it is
// meant for first start on an empty data dir.
func seedGenesis(node *core.Node, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	balances := make(map[string]string)
	if err := json.Unmarshal(raw, &balances); err != nil {
		return err
	}
	for rawAddr, rawAmount := range balances {
		addr, err := parseAddress(rawAddr)
		if err != nil {
			return fmt.Errorf("genesis address %q: %w", rawAddr, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(rawAmount), 10)
		if !ok || amount.Sign() < 0 {
			return fmt.Errorf("genesis amount %q for %s", rawAmount, rawAddr)
		}
		if err := node.SeedAccount(addr, amount); err != nil {
			return err
		}
	}
	return nil
}

func parseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, err
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("expected 20 byte address, got %d", len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}
