package rpc

import (
	"encoding/json"
	"math/big"
)

// VaultStateResult summarises the vault's accounting position.
type VaultStateResult struct {
	TotalAssets       string `json:"totalAssets"`
	TotalSupply       string `json:"totalSupply"`
	SharePrice        string `json:"sharePrice"`
	LockedProfit      string `json:"lockedProfit"`
	AnticipatedProfit string `json:"anticipatedProfit"`
	LastProfitUpdate  int64  `json:"lastProfitUpdate"`
	TotalRemoteAssets string `json:"totalRemoteAssets"`
	MaxTotalAssets    string `json:"maxTotalAssets"`
	Paused            bool   `json:"paused"`
}

func (s *Server) handleGetState(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) != 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "no params expected"}
	}
	total, err := s.vault.TotalAssets()
	if err != nil {
		return nil, engineError(err)
	}
	supply, err := s.vault.TotalSupply()
	if err != nil {
		return nil, engineError(err)
	}
	price, err := s.vault.SharePrice()
	if err != nil {
		return nil, engineError(err)
	}
	locked, err := s.vault.UnrealizedGains()
	if err != nil {
		return nil, engineError(err)
	}
	anticipated, lastUpdate, err := s.vault.AnticipatedProfits()
	if err != nil {
		return nil, engineError(err)
	}
	remote, err := s.vault.TotalRemoteAssets()
	if err != nil {
		return nil, engineError(err)
	}
	maxAssets, err := s.vault.MaxTotalAssets()
	if err != nil {
		return nil, engineError(err)
	}
	paused, err := s.vault.IsPaused()
	if err != nil {
		return nil, engineError(err)
	}
	return &VaultStateResult{
		TotalAssets:       bigString(total),
		TotalSupply:       bigString(supply),
		SharePrice:        bigString(price),
		LockedProfit:      bigString(locked),
		AnticipatedProfit: bigString(anticipated),
		LastProfitUpdate:  lastUpdate,
		TotalRemoteAssets: bigString(remote),
		MaxTotalAssets:    bigString(maxAssets),
		Paused:            paused,
	}, nil
}

// FeesResult reports the fee configuration plus the currently accrued amounts.
type FeesResult struct {
	PerformanceBps uint64 `json:"performanceBps"`
	ManagementBps  uint64 `json:"managementBps"`
	WithdrawBps    uint64 `json:"withdrawBps"`
	PendingPerf    string `json:"pendingPerformance"`
	PendingMgmt    string `json:"pendingManagement"`
	Checkpoint     string `json:"checkpointSharePrice"`
	CheckpointTime int64  `json:"checkpointTime"`
}

func (s *Server) handleGetFees(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) != 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "no params expected"}
	}
	fees, err := s.vault.Fees()
	if err != nil {
		return nil, engineError(err)
	}
	perf, mgmt, err := s.vault.ComputeFees()
	if err != nil {
		return nil, engineError(err)
	}
	checkpoint, checkpointTime, err := s.vault.Checkpoint()
	if err != nil {
		return nil, engineError(err)
	}
	return &FeesResult{
		PerformanceBps: fees.PerformanceBps,
		ManagementBps:  fees.ManagementBps,
		WithdrawBps:    fees.WithdrawBps,
		PendingPerf:    bigString(perf),
		PendingMgmt:    bigString(mgmt),
		Checkpoint:     bigString(checkpoint),
		CheckpointTime: checkpointTime,
	}, nil
}

type addressParams struct {
	Address string `json:"address"`
}

// BalanceResult reports an account's share balance and its asset value at the
// current share price.
type BalanceResult struct {
	Address    string `json:"address"`
	Shares     string `json:"shares"`
	AssetValue string `json:"assetValue"`
}

func (s *Server) handleGetBalance(params []json.RawMessage) (interface{}, *RPCError) {
	var p addressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddr(p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	shares, err := s.vault.BalanceOf(addr)
	if err != nil {
		return nil, engineError(err)
	}
	value, err := s.vault.ConvertToAssets(shares)
	if err != nil {
		return nil, engineError(err)
	}
	return &BalanceResult{Address: addr.Hex(), Shares: bigString(shares), AssetValue: bigString(value)}, nil
}

// ChainResult describes one registered remote chain.
type ChainResult struct {
	ChainID         uint64 `json:"chainId"`
	Debt            string `json:"debt"`
	MaxDeposit      string `json:"maxDeposit"`
	Bridge          string `json:"bridge"`
	RemoteAllocator string `json:"remoteAllocator"`
	RemoteBridge    string `json:"remoteBridge"`
}

func (s *Server) handleGetChains(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) != 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "no params expected"}
	}
	chains, err := s.vault.Chains()
	if err != nil {
		return nil, engineError(err)
	}
	out := make([]ChainResult, 0, len(chains))
	for _, rec := range chains {
		out = append(out, ChainResult{
			ChainID:         rec.ChainID,
			Debt:            bigString(rec.Debt),
			MaxDeposit:      bigString(rec.MaxDeposit),
			Bridge:          rec.Bridge.Hex(),
			RemoteAllocator: rec.RemoteAllocator.Hex(),
			RemoteBridge:    rec.RemoteBridge.Hex(),
		})
	}
	return out, nil
}

// PoolResult combines the vault's pool record with the pool's own view.
type PoolResult struct {
	Enabled        bool   `json:"enabled"`
	Address        string `json:"address"`
	Debt           string `json:"debt"`
	Liquidity      string `json:"liquidity"`
	LPUnits        string `json:"lpUnits"`
	VirtualPrice   string `json:"virtualPrice,omitempty"`
	Amplification  string `json:"amplification,omitempty"`
	AssetBalance   string `json:"assetBalance,omitempty"`
	VirtualBalance string `json:"virtualBalance,omitempty"`
	LPSupply       string `json:"lpSupply,omitempty"`
}

func (s *Server) handleGetPool(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) != 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "no params expected"}
	}
	rec, err := s.vault.PoolRecord()
	if err != nil {
		return nil, engineError(err)
	}
	result := &PoolResult{}
	if rec != nil {
		result.Enabled = rec.Enabled
		result.Address = rec.Pool.Hex()
		result.Debt = bigString(rec.Debt)
		result.Liquidity = bigString(rec.Liquidity)
		result.LPUnits = bigString(rec.LPUnits)
	}
	if s.pool != nil && rec != nil && rec.Enabled {
		if price, err := s.pool.VirtualPrice(); err == nil {
			result.VirtualPrice = bigString(price)
		}
		if amp, err := s.pool.A(); err == nil {
			result.Amplification = bigString(amp)
		}
		if bal, err := s.pool.AssetBalance(); err == nil {
			result.AssetBalance = bigString(bal)
		}
		if bal, err := s.pool.VirtualBalance(); err == nil {
			result.VirtualBalance = bigString(bal)
		}
		if supply, err := s.pool.LPSupply(); err == nil {
			result.LPSupply = bigString(supply)
		}
	}
	return result, nil
}

type amountParams struct {
	Amount string `json:"amount"`
}

type previewResult struct {
	Amount string `json:"amount"`
}

func (s *Server) preview(params []json.RawMessage, convert func(*big.Int) (*big.Int, error)) (interface{}, *RPCError) {
	var p amountParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out, err := convert(amount)
	if err != nil {
		return nil, engineError(err)
	}
	return &previewResult{Amount: bigString(out)}, nil
}

func (s *Server) handlePreviewDeposit(params []json.RawMessage) (interface{}, *RPCError) {
	return s.preview(params, s.vault.PreviewDeposit)
}

func (s *Server) handlePreviewMint(params []json.RawMessage) (interface{}, *RPCError) {
	return s.preview(params, s.vault.PreviewMint)
}

func (s *Server) handlePreviewWithdraw(params []json.RawMessage) (interface{}, *RPCError) {
	return s.preview(params, s.vault.PreviewWithdraw)
}

func (s *Server) handlePreviewRedeem(params []json.RawMessage) (interface{}, *RPCError) {
	return s.preview(params, s.vault.PreviewRedeem)
}

type snapshotQueryParams struct {
	Address    string `json:"address,omitempty"`
	SnapshotID uint64 `json:"snapshotId"`
}

func (s *Server) handleBalanceOfAt(params []json.RawMessage) (interface{}, *RPCError) {
	var p snapshotQueryParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddr(p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.vault.BalanceOfAt(addr, p.SnapshotID)
	if err != nil {
		return nil, engineError(err)
	}
	return &previewResult{Amount: bigString(balance)}, nil
}

func (s *Server) handleTotalSupplyAt(params []json.RawMessage) (interface{}, *RPCError) {
	var p snapshotQueryParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	supply, err := s.vault.TotalSupplyAt(p.SnapshotID)
	if err != nil {
		return nil, engineError(err)
	}
	return &previewResult{Amount: bigString(supply)}, nil
}

type estimateDispatchParams struct {
	ChainIDs []uint64 `json:"chainIds"`
	Amounts  []string `json:"amounts"`
}

// EstimateDispatchResult carries the per-chain relay quotes and their sum.
type EstimateDispatchResult struct {
	Fees  []string `json:"fees"`
	Total string   `json:"total"`
}

func (s *Server) handleEstimateDispatch(params []json.RawMessage) (interface{}, *RPCError) {
	var p estimateDispatchParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	amounts := make([]*big.Int, len(p.Amounts))
	for i, raw := range p.Amounts {
		amount, rpcErr := parseAmount(raw)
		if rpcErr != nil {
			return nil, rpcErr
		}
		amounts[i] = amount
	}
	fees, err := s.vault.EstimateDispatchCost(p.ChainIDs, amounts)
	if err != nil {
		return nil, engineError(err)
	}
	result := &EstimateDispatchResult{Fees: make([]string, len(fees))}
	total := new(big.Int)
	for i, fee := range fees {
		result.Fees[i] = bigString(fee)
		total.Add(total, fee)
	}
	result.Total = total.String()
	return result, nil
}
