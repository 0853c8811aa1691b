// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/slog"

	"github.com/offchainlabs/crosslock/coordinator"
	"github.com/offchainlabs/crosslock/ledger"
	"github.com/offchainlabs/crosslock/proofs"
	"github.com/offchainlabs/crosslock/remote"
	"github.com/offchainlabs/crosslock/store"
	"github.com/offchainlabs/crosslock/swap"
	"github.com/offchainlabs/crosslock/util/colors"
)

func main() {
	os.Exit(mainImpl())
}

func mainImpl() int {
	cfg, err := ParseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error parsing configuration:", err)
		return 1
	}
	if err := initLog(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigint
		log.Info("shutting down")
		cancel()
	}()

	var db ethdb.Database
	if cfg.StoreDir == "" {
		db = rawdb.NewMemoryDatabase()
	} else {
		db, err = rawdb.NewLevelDBDatabase(cfg.StoreDir, 16, 16, "crosslock/", false)
		if err != nil {
			log.Error("opening draft-tx store", "dir", cfg.StoreDir, "err", err)
			return 1
		}
	}
	service := store.New(db)
	defer func() {
		if err := service.Close(); err != nil {
			log.Error("closing draft-tx store", "err", err)
		}
	}()

	if cfg.Dev {
		if err := runDevSwap(ctx, cfg, service); err != nil {
			log.Error("dev swap failed", "err", err)
			return 1
		}
		return 0
	}

	if cfg.Remote.URL == "" || cfg.Remote.Protocol == "" {
		log.Error("remote.url and remote.protocol are required (or pass --dev)")
		return 1
	}
	client, err := remote.Dial(ctx, cfg.Remote.URL, common.HexToAddress(cfg.Remote.From))
	if err != nil {
		log.Error("dialing remote ledger", "url", cfg.Remote.URL, "err", err)
		return 1
	}
	defer client.Close()
	caching, err := remote.NewCachingClient(client)
	if err != nil {
		log.Error("building caching client", "err", err)
		return 1
	}

	localLedger, err := ledger.NewMemoryLedger()
	if err != nil {
		log.Error("starting local ledger", "err", err)
		return 1
	}
	binding := remote.NewProtocolBinding(common.HexToAddress(cfg.Remote.Protocol))
	coord := coordinator.New(
		func() *coordinator.Config { return &cfg.Coordinator },
		localLedger,
		caching,
		binding,
		service,
		proofs.NewBlockSigAssembler(service, nil),
		proofs.NewNotarySigAssembler(service, []proofs.Notary{localLedger}),
	)
	coord.Start(ctx)
	defer coord.StopAndWait()
	log.Info("coordinator running", "remote", cfg.Remote.URL, "protocol", cfg.Remote.Protocol)
	<-ctx.Done()
	return 0
}

func initLog(level string) error {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	glogger := log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, false))
	glogger.Verbosity(lvl)
	log.SetDefault(log.NewLogger(glogger))
	return nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit", "critical":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown level: %q", level)
	}
}

// runDevSwap walks one full swap across a memory ledger and a simulated
// remote chain: draft, sign, commit, claim, proof collection, unlock.
func runDevSwap(ctx context.Context, cfg *AppConfig, service *store.Service) error {
	localLedger, err := ledger.NewMemoryLedger()
	if err != nil {
		return err
	}
	alice, err := localLedger.CreateParty("alice")
	if err != nil {
		return err
	}
	bob, err := localLedger.CreateParty("bob")
	if err != nil {
		return err
	}

	var oracles []proofs.Oracle
	var signers []common.Address
	for i := 0; i < 2; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		oracles = append(oracles, proofs.NewKeyedOracle(key))
		signers = append(signers, crypto.PubkeyToAddress(key.PublicKey))
	}

	protocol := common.HexToAddress("0x00000000000000000000000000000000000c5a1d")
	backend := remote.NewSimulatedBackend(big.NewInt(1337), protocol)
	intent := &swap.Intent{
		ChainID:             big.NewInt(1337),
		ProtocolAddress:     protocol,
		Owner:               common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		Recipient:           common.HexToAddress("0x00000000000000000000000000000000000000b2"),
		Amount:              big.NewInt(5),
		TokenID:             big.NewInt(0),
		TokenAddress:        common.HexToAddress("0x000000000000000000000000000000000000601d"),
		SignaturesThreshold: 2,
		Signers:             signers,
	}

	coord := coordinator.New(
		func() *coordinator.Config { return &cfg.Coordinator },
		localLedger,
		backend.Session(intent.Owner),
		backend.Binding(),
		service,
		proofs.NewBlockSigAssembler(service, oracles),
	)
	coord.Start(ctx)
	defer coord.StopAndWait()

	asset, err := localLedger.IssueAsset(ctx, bob, big.NewInt(5))
	if err != nil {
		return err
	}
	swapID, err := coord.Draft(ctx, intent, asset, swap.LockParams{
		OwnerParty:     bob,
		RecipientParty: alice,
		Notary:         localLedger.Notary(),
		Validators:     signers,
		Threshold:      2,
	})
	if err != nil {
		return err
	}
	if err := coord.Sign(ctx, swapID); err != nil {
		return err
	}
	if _, err := coord.CommitRemote(ctx, swapID); err != nil {
		return err
	}
	if err := coord.WaitRemoteCommit(ctx, swapID); err != nil {
		return err
	}
	if _, err := coord.ClaimRemote(ctx, swapID); err != nil {
		return err
	}
	loc, ok := backend.EventLocation(swapID)
	if !ok {
		return fmt.Errorf("claim event not found for swap %v", swapID)
	}
	if err := coord.CollectProofs(ctx, swapID, loc.BlockNumber, proofs.BlockSignatures); err != nil {
		return err
	}
	if err := coord.Unlock(ctx, swapID, loc.BlockNumber, loc.TxIndex); err != nil {
		return err
	}
	held, err := localLedger.VaultQuery(ctx, alice)
	if err != nil {
		return err
	}
	colors.PrintMint("swap ", swapID.Hex(), " unlocked; alice now holds ", len(held), " asset(s)")
	return nil
}
