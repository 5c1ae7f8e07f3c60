package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// VaultAmounts holds the parsed big-integer genesis amounts for the vault.
type VaultAmounts struct {
	SeedDeposit    *big.Int
	MaxTotalAssets *big.Int
}

// Amounts parses the configured vault genesis amounts into runtime values.
func (v VaultGenesis) Amounts() (VaultAmounts, error) {
	seed, err := parseUintAmount(v.SeedDeposit)
	if err != nil {
		return VaultAmounts{}, fmt.Errorf("invalid Genesis.Vault.SeedDeposit: %w", err)
	}
	maxAssets, err := parseUintAmount(v.MaxTotalAssets)
	if err != nil {
		return VaultAmounts{}, fmt.Errorf("invalid Genesis.Vault.MaxTotalAssets: %w", err)
	}
	return VaultAmounts{SeedDeposit: seed, MaxTotalAssets: maxAssets}, nil
}

// OwnerAddress parses the configured vault owner address.
func (v VaultGenesis) OwnerAddress() (common.Address, error) {
	return parseAddress("Genesis.Vault.Owner", v.Owner)
}

// AssetAddress parses the configured reserve asset address.
func (v VaultGenesis) AssetAddress() (common.Address, error) {
	return parseAddress("Genesis.Vault.Asset", v.Asset)
}

// PoolAddress parses the configured pool address.
func (p PoolGenesis) PoolAddress() (common.Address, error) {
	return parseAddress("Genesis.Pool.Address", p.Address)
}

// Seed parses the configured pool seed liquidity.
func (p PoolGenesis) Seed() (*big.Int, error) {
	amount, err := parseUintAmount(p.SeedLiquidity)
	if err != nil {
		return nil, fmt.Errorf("invalid Genesis.Pool.SeedLiquidity: %w", err)
	}
	return amount, nil
}

// ChainLimits holds the parsed big-integer limits for one remote chain.
type ChainLimits struct {
	MaxDeposit *big.Int
	RelayFee   *big.Int
}

// Limits parses the configured chain caps into runtime values.
func (c ChainGenesis) Limits() (ChainLimits, error) {
	maxDeposit, err := parseUintAmount(c.MaxDeposit)
	if err != nil {
		return ChainLimits{}, fmt.Errorf("chain %d: invalid MaxDeposit: %w", c.ChainID, err)
	}
	fee, err := parseUintAmount(c.RelayFee)
	if err != nil {
		return ChainLimits{}, fmt.Errorf("chain %d: invalid RelayFee: %w", c.ChainID, err)
	}
	return ChainLimits{MaxDeposit: maxDeposit, RelayFee: fee}, nil
}

// BridgeAddress parses the chain's local bridge caller address.
func (c ChainGenesis) BridgeAddress() (common.Address, error) {
	return parseAddress(fmt.Sprintf("chain %d Bridge", c.ChainID), c.Bridge)
}

// RemoteAddresses parses the remote allocator and bridge addresses.
func (c ChainGenesis) RemoteAddresses() (allocator, bridge common.Address, err error) {
	allocator, err = parseAddress(fmt.Sprintf("chain %d RemoteAllocator", c.ChainID), c.RemoteAllocator)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	bridge, err = parseAddress(fmt.Sprintf("chain %d RemoteBridge", c.ChainID), c.RemoteBridge)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return allocator, bridge, nil
}

func parseAddress(label, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", label, raw)
	}
	return common.HexToAddress(trimmed), nil
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", raw)
	}
	return value, nil
}
