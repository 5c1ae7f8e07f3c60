package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/config"
	"yakisoba/core/types"
	"yakisoba/native/bridge"
	"yakisoba/native/elb"
	"yakisoba/native/vault"
	"yakisoba/observability"
	"yakisoba/observability/logging"
	"yakisoba/rpc"
	"yakisoba/state"
	"yakisoba/storage"
)

// Module accounts. The vault module address custodies pooled reserve assets;
// the yield holder custodies the pool's real leg.
var (
	vaultModuleAddress = common.HexToAddress("0x000000000000000000000000000000000000a001")
	yieldHolderAddress = common.HexToAddress("0x000000000000000000000000000000000000a002")
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("yakisobad", cfg.NetworkName, logging.Rotation{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	if err := config.ValidateGenesis(cfg.Genesis); err != nil {
		logger.Error("Invalid genesis configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		panic(fmt.Sprintf("Failed to prepare data directory: %v", err))
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	sink := &observability.CountingSink{}

	owner, err := cfg.Genesis.Vault.OwnerAddress()
	if err != nil {
		logger.Error("Invalid owner address", slog.Any("error", err))
		os.Exit(1)
	}
	asset, err := cfg.Genesis.Vault.AssetAddress()
	if err != nil {
		logger.Error("Invalid asset address", slog.Any("error", err))
		os.Exit(1)
	}
	amounts, err := cfg.Genesis.Vault.Amounts()
	if err != nil {
		logger.Error("Invalid genesis amounts", slog.Any("error", err))
		os.Exit(1)
	}

	vaultEngine := vault.NewEngine(owner, vaultModuleAddress)
	vaultEngine.SetState(manager)
	vaultEngine.SetEventSink(sink)

	existing, err := manager.GetVault()
	if err != nil {
		panic(fmt.Sprintf("Failed to read vault state: %v", err))
	}
	fresh := existing == nil

	if fresh {
		if err := seedGenesis(manager, vaultEngine, owner, asset, cfg.Genesis.Vault, amounts); err != nil {
			logger.Error("Genesis seeding failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("vault initialised from genesis",
			"owner", owner.Hex(),
			"seed", amounts.SeedDeposit.String(),
			"cap", amounts.MaxTotalAssets.String())
	}

	var poolEngine *elb.Engine
	if cfg.Genesis.Pool.Enabled {
		poolEngine, err = wirePool(manager, vaultEngine, sink, asset, cfg.Genesis, fresh)
		if err != nil {
			logger.Error("Pool wiring failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	relay := bridge.NewFlatFeeRelay()
	for _, chain := range cfg.Genesis.Chains {
		limits, err := chain.Limits()
		if err != nil {
			logger.Error("Invalid chain limits", slog.Any("error", err))
			os.Exit(1)
		}
		relay.SetFee(chain.ChainID, limits.RelayFee)
	}
	vaultEngine.SetRelay(relay)

	// Chain routing is refreshed every boot; AddChain never resets booked debt.
	for _, chain := range cfg.Genesis.Chains {
		limits, _ := chain.Limits()
		bridgeAddr, err := chain.BridgeAddress()
		if err != nil {
			logger.Error("Invalid bridge address", slog.Any("error", err))
			os.Exit(1)
		}
		allocator, remoteBridge, err := chain.RemoteAddresses()
		if err != nil {
			logger.Error("Invalid remote addresses", slog.Any("error", err))
			os.Exit(1)
		}
		if err := vaultEngine.AddChain(owner, chain.ChainID, limits.MaxDeposit, bridgeAddr, allocator, remoteBridge); err != nil {
			logger.Error("Failed to register chain", slog.Uint64("chainId", chain.ChainID), slog.Any("error", err))
			os.Exit(1)
		}
	}

	server := rpc.NewServer(vaultEngine, poolEngine, rpc.Options{
		RequestsPerMinute: cfg.RPCRequestsPerMinute,
		Burst:             cfg.RPCBurst,
		Logger:            logger,
	})
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// seedGenesis credits the owner with the seed deposit, initialises the vault
// and opens it for deposits when a cap is configured.
func seedGenesis(manager *state.Manager, engine *vault.Engine, owner, asset common.Address, genesis config.VaultGenesis, amounts config.VaultAmounts) error {
	if amounts.SeedDeposit.Sign() > 0 {
		acct, err := manager.GetAccount(owner)
		if err != nil {
			return err
		}
		if acct == nil {
			acct = types.NewAccount(owner)
		}
		acct.Balance = new(big.Int).Add(acct.Balance, amounts.SeedDeposit)
		if err := manager.PutAccount(owner, acct); err != nil {
			return err
		}
	}

	err := engine.Initialize(vault.VaultConfig{
		Asset:         asset,
		AssetDecimals: genesis.AssetDecimals,
		LocalChainID:  genesis.LocalChainID,
		Fees: vault.FeeConfig{
			PerformanceBps: genesis.PerformanceFeeBps,
			ManagementBps:  genesis.ManagementFeeBps,
			WithdrawBps:    genesis.WithdrawFeeBps,
		},
		SeedDeposit: amounts.SeedDeposit,
	})
	if err != nil && !errors.Is(err, vault.ErrAlreadyInitialized) {
		return err
	}

	if amounts.MaxTotalAssets.Sign() > 0 {
		if err := engine.Unpause(owner); err != nil {
			return err
		}
		if err := engine.SetMaxTotalAssets(owner, amounts.MaxTotalAssets); err != nil {
			return err
		}
	}
	return nil
}

// wirePool builds the elastic liquidity pool engine, initialises its swap
// state on first boot and installs it in the vault.
func wirePool(manager *state.Manager, vaultEngine *vault.Engine, sink *observability.CountingSink, asset common.Address, genesis config.Genesis, fresh bool) (*elb.Engine, error) {
	poolAddr, err := genesis.Pool.PoolAddress()
	if err != nil {
		return nil, err
	}
	yield := state.NewAccountYieldSource(manager, yieldHolderAddress)
	poolEngine := elb.NewEngine(vaultModuleAddress, vaultModuleAddress, poolAddr, yield)
	poolEngine.SetState(manager)
	poolEngine.SetEventSink(sink)

	err = poolEngine.Initialize(elb.PoolConfig{
		PooledTokens: []common.Address{{}, asset},
		Underlying:   []common.Address{{}, asset},
		Decimals:     []uint8{genesis.Vault.AssetDecimals, genesis.Vault.AssetDecimals},
		InitialA:     genesis.Pool.AmplificationFactor,
		SwapFeeBps:   genesis.Pool.SwapFeeBps,
		AdminFeeBps:  genesis.Pool.AdminFeeBps,
	})
	if err != nil && !errors.Is(err, elb.ErrAlreadyInitialized) {
		return nil, err
	}

	vaultEngine.SetLiquidityPool(poolEngine)
	if fresh {
		seed, err := genesis.Pool.Seed()
		if err != nil {
			return nil, err
		}
		owner, err := genesis.Vault.OwnerAddress()
		if err != nil {
			return nil, err
		}
		if err := vaultEngine.MigrateLiquidityPool(owner, poolEngine, poolAddr, seed); err != nil {
			return nil, err
		}
	}
	return poolEngine, nil
}
