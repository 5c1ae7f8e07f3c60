package config

// VaultGenesis captures the vault parameters applied when the daemon boots a
// fresh data directory.
type VaultGenesis struct {
	Owner             string `toml:"Owner"`
	Asset             string `toml:"Asset"`
	AssetDecimals     uint8  `toml:"AssetDecimals"`
	LocalChainID      uint64 `toml:"LocalChainID"`
	PerformanceFeeBps uint64 `toml:"PerformanceFeeBps"`
	ManagementFeeBps  uint64 `toml:"ManagementFeeBps"`
	WithdrawFeeBps    uint64 `toml:"WithdrawFeeBps"`
	SeedDeposit       string `toml:"SeedDeposit"`
	MaxTotalAssets    string `toml:"MaxTotalAssets"`
}

// PoolGenesis configures the embedded liquidity pool. A disabled pool leaves
// the vault running on local balance and remote chains only.
type PoolGenesis struct {
	Enabled             bool   `toml:"Enabled"`
	Address             string `toml:"Address"`
	AmplificationFactor uint64 `toml:"AmplificationFactor"`
	SwapFeeBps          uint64 `toml:"SwapFeeBps"`
	AdminFeeBps         uint64 `toml:"AdminFeeBps"`
	SeedLiquidity       string `toml:"SeedLiquidity"`
}

// ChainGenesis registers one remote chain allocation target.
type ChainGenesis struct {
	ChainID         uint64 `toml:"ChainID"`
	MaxDeposit      string `toml:"MaxDeposit"`
	Bridge          string `toml:"Bridge"`
	RemoteAllocator string `toml:"RemoteAllocator"`
	RemoteBridge    string `toml:"RemoteBridge"`
	RelayFee        string `toml:"RelayFee"`
}

// Genesis bundles the state seeded into an empty database on first start.
type Genesis struct {
	Vault  VaultGenesis   `toml:"Vault"`
	Pool   PoolGenesis    `toml:"Pool"`
	Chains []ChainGenesis `toml:"Chains"`
}
