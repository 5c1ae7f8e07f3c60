package config

import "fmt"

const (
	maxPerformanceFeeBps = uint64(10_000)
	maxManagementFeeBps  = uint64(10_000)
	maxWithdrawFeeBps    = uint64(2_000)
	maxAmplification     = uint64(1_000_000)
	maxSwapFeeBps        = uint64(100)
	feeDenominatorBps    = uint64(10_000)
	maxAssetDecimals     = uint8(18)
)

// ValidateGenesis checks the genesis block of the configuration before it is
// applied to an empty database.
func ValidateGenesis(g Genesis) error {
	if g.Vault.AssetDecimals > maxAssetDecimals {
		return fmt.Errorf("vault: AssetDecimals %d > %d", g.Vault.AssetDecimals, maxAssetDecimals)
	}
	if g.Vault.LocalChainID == 0 {
		return fmt.Errorf("vault: LocalChainID must be non-zero")
	}
	if g.Vault.PerformanceFeeBps > maxPerformanceFeeBps {
		return fmt.Errorf("vault: PerformanceFeeBps %d > %d", g.Vault.PerformanceFeeBps, maxPerformanceFeeBps)
	}
	if g.Vault.ManagementFeeBps > maxManagementFeeBps {
		return fmt.Errorf("vault: ManagementFeeBps %d > %d", g.Vault.ManagementFeeBps, maxManagementFeeBps)
	}
	if g.Vault.WithdrawFeeBps > maxWithdrawFeeBps {
		return fmt.Errorf("vault: WithdrawFeeBps %d > %d", g.Vault.WithdrawFeeBps, maxWithdrawFeeBps)
	}
	if g.Pool.Enabled {
		if g.Pool.AmplificationFactor == 0 || g.Pool.AmplificationFactor >= maxAmplification {
			return fmt.Errorf("pool: AmplificationFactor %d out of range", g.Pool.AmplificationFactor)
		}
		if g.Pool.SwapFeeBps > maxSwapFeeBps {
			return fmt.Errorf("pool: SwapFeeBps %d > %d", g.Pool.SwapFeeBps, maxSwapFeeBps)
		}
		if g.Pool.AdminFeeBps > feeDenominatorBps {
			return fmt.Errorf("pool: AdminFeeBps %d > %d", g.Pool.AdminFeeBps, feeDenominatorBps)
		}
	}
	seen := make(map[uint64]struct{}, len(g.Chains))
	for _, chain := range g.Chains {
		if chain.ChainID == 0 {
			return fmt.Errorf("chains: ChainID must be non-zero")
		}
		if chain.ChainID == g.Vault.LocalChainID {
			return fmt.Errorf("chains: chain %d duplicates LocalChainID", chain.ChainID)
		}
		if _, dup := seen[chain.ChainID]; dup {
			return fmt.Errorf("chains: duplicate ChainID %d", chain.ChainID)
		}
		seen[chain.ChainID] = struct{}{}
	}
	return nil
}
