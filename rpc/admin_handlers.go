package rpc

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/native/vault"
	"yakisoba/observability/metrics"
)

type depositParams struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
	// MinShares and Deadline switch the call onto the slippage-guarded path.
	MinShares string `json:"minShares,omitempty"`
	Deadline  int64  `json:"deadline,omitempty"`
}

func (s *Server) handleDeposit(params []json.RawMessage) (interface{}, *RPCError) {
	var p depositParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receiver, rpcErr := parseAddr(p.Receiver)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var (
		shares *big.Int
		err    error
	)
	if strings.TrimSpace(p.MinShares) != "" {
		minShares, minErr := parseAmount(p.MinShares)
		if minErr != nil {
			return nil, minErr
		}
		shares, err = s.vault.SafeDeposit(caller, receiver, amount, minShares, p.Deadline)
	} else {
		shares, err = s.vault.Deposit(caller, receiver, amount)
	}
	if err != nil {
		return nil, engineError(err)
	}
	metrics.Vault().ObserveDeposit("deposit")
	s.publishGauges()
	return &previewResult{Amount: bigString(shares)}, nil
}

type mintParams struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Shares   string `json:"shares"`
}

func (s *Server) handleMint(params []json.RawMessage) (interface{}, *RPCError) {
	var p mintParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receiver, rpcErr := parseAddr(p.Receiver)
	if rpcErr != nil {
		return nil, rpcErr
	}
	shares, rpcErr := parseAmount(p.Shares)
	if rpcErr != nil {
		return nil, rpcErr
	}
	assets, err := s.vault.Mint(caller, receiver, shares)
	if err != nil {
		return nil, engineError(err)
	}
	metrics.Vault().ObserveDeposit("mint")
	s.publishGauges()
	return &previewResult{Amount: bigString(assets)}, nil
}

type withdrawParams struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Owner    string `json:"owner"`
	Amount   string `json:"amount"`
	// MaxShares / MinAssets and Deadline switch to the slippage-guarded path.
	MaxShares string `json:"maxShares,omitempty"`
	MinAssets string `json:"minAssets,omitempty"`
	Deadline  int64  `json:"deadline,omitempty"`
}

func (s *Server) handleWithdraw(params []json.RawMessage) (interface{}, *RPCError) {
	var p withdrawParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receiver, rpcErr := parseAddr(p.Receiver)
	if rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAddr(p.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var (
		shares *big.Int
		err    error
	)
	if strings.TrimSpace(p.MaxShares) != "" {
		maxShares, maxErr := parseAmount(p.MaxShares)
		if maxErr != nil {
			return nil, maxErr
		}
		shares, err = s.vault.SafeWithdraw(caller, receiver, owner, amount, maxShares, p.Deadline)
	} else {
		shares, err = s.vault.Withdraw(caller, receiver, owner, amount)
	}
	if err != nil {
		return nil, engineError(err)
	}
	metrics.Vault().ObserveWithdrawal("withdraw")
	s.publishGauges()
	return &previewResult{Amount: bigString(shares)}, nil
}

func (s *Server) handleRedeem(params []json.RawMessage) (interface{}, *RPCError) {
	var p withdrawParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receiver, rpcErr := parseAddr(p.Receiver)
	if rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAddr(p.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	shares, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var (
		assets *big.Int
		err    error
	)
	if strings.TrimSpace(p.MinAssets) != "" {
		minAssets, minErr := parseAmount(p.MinAssets)
		if minErr != nil {
			return nil, minErr
		}
		assets, err = s.vault.SafeRedeem(caller, receiver, owner, shares, minAssets, p.Deadline)
	} else {
		assets, err = s.vault.Redeem(caller, receiver, owner, shares)
	}
	if err != nil {
		return nil, engineError(err)
	}
	metrics.Vault().ObserveWithdrawal("redeem")
	s.publishGauges()
	return &previewResult{Amount: bigString(assets)}, nil
}

type transferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Shares string `json:"shares"`
}

func (s *Server) handleTransfer(params []json.RawMessage) (interface{}, *RPCError) {
	var p transferParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddr(p.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddr(p.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	shares, rpcErr := parseAmount(p.Shares)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.vault.Transfer(from, to, shares); err != nil {
		return nil, engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type callerParams struct {
	Caller string `json:"caller"`
}

func (s *Server) callerOnly(params []json.RawMessage, op func(caller common.Address) error) (interface{}, *RPCError) {
	var p callerParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := op(caller); err != nil {
		return nil, engineError(err)
	}
	s.publishGauges()
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handlePause(params []json.RawMessage) (interface{}, *RPCError) {
	return s.callerOnly(params, s.vault.Pause)
}

func (s *Server) handleUnpause(params []json.RawMessage) (interface{}, *RPCError) {
	return s.callerOnly(params, s.vault.Unpause)
}

func (s *Server) handleRebalancePool(params []json.RawMessage) (interface{}, *RPCError) {
	return s.callerOnly(params, s.vault.RebalanceLiquidityPool)
}

type setMaxParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *Server) handleSetMaxTotalAssets(params []json.RawMessage) (interface{}, *RPCError) {
	var p setMaxParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.vault.SetMaxTotalAssets(caller, amount); err != nil {
		return nil, engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type setFeesParams struct {
	Caller         string `json:"caller"`
	PerformanceBps uint64 `json:"performanceBps"`
	ManagementBps  uint64 `json:"managementBps"`
	WithdrawBps    uint64 `json:"withdrawBps"`
}

func (s *Server) handleSetFees(params []json.RawMessage) (interface{}, *RPCError) {
	var p setFeesParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	fees := vault.FeeConfig{
		PerformanceBps: p.PerformanceBps,
		ManagementBps:  p.ManagementBps,
		WithdrawBps:    p.WithdrawBps,
	}
	if err := s.vault.SetFees(caller, fees); err != nil {
		return nil, engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleTakeFees(params []json.RawMessage) (interface{}, *RPCError) {
	var p callerParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	minted, err := s.vault.TakeFees(caller)
	if err != nil {
		return nil, engineError(err)
	}
	metrics.Vault().ObserveFeeShares(minted)
	s.publishGauges()
	return &previewResult{Amount: bigString(minted)}, nil
}

func (s *Server) handleSnapshot(params []json.RawMessage) (interface{}, *RPCError) {
	var p callerParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.vault.Snapshot(caller)
	if err != nil {
		return nil, engineError(err)
	}
	return map[string]uint64{"snapshotId": id}, nil
}

type addChainParams struct {
	Caller          string `json:"caller"`
	ChainID         uint64 `json:"chainId"`
	MaxDeposit      string `json:"maxDeposit"`
	Bridge          string `json:"bridge"`
	RemoteAllocator string `json:"remoteAllocator"`
	RemoteBridge    string `json:"remoteBridge"`
}

func (s *Server) handleAddChain(params []json.RawMessage) (interface{}, *RPCError) {
	var p addChainParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	maxDeposit, rpcErr := parseAmount(p.MaxDeposit)
	if rpcErr != nil {
		return nil, rpcErr
	}
	bridgeAddr, rpcErr := parseAddr(p.Bridge)
	if rpcErr != nil {
		return nil, rpcErr
	}
	allocator, rpcErr := parseAddr(p.RemoteAllocator)
	if rpcErr != nil {
		return nil, rpcErr
	}
	remoteBridge, rpcErr := parseAddr(p.RemoteBridge)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.vault.AddChain(caller, p.ChainID, maxDeposit, bridgeAddr, allocator, remoteBridge); err != nil {
		return nil, engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

type chainAmountParams struct {
	Caller  string `json:"caller"`
	ChainID uint64 `json:"chainId"`
	Amount  string `json:"amount"`
}

func (s *Server) handleSetChainMaxDeposit(params []json.RawMessage) (interface{}, *RPCError) {
	var p chainAmountParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.vault.SetMaxDepositForChain(caller, amount, p.ChainID); err != nil {
		return nil, engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleUpdateChainDebt(params []json.RawMessage) (interface{}, *RPCError) {
	var p chainAmountParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.vault.UpdateChainDebt(caller, p.ChainID, amount); err != nil {
		return nil, engineError(err)
	}
	if debt, err := s.vault.ChainDebt(p.ChainID); err == nil {
		metrics.Vault().SetChainDebt(p.ChainID, debt)
	}
	s.publishGauges()
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleReceiveBridgedFunds(params []json.RawMessage) (interface{}, *RPCError) {
	var p chainAmountParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.vault.ReceiveBridgedFunds(caller, p.ChainID, amount); err != nil {
		return nil, engineError(err)
	}
	metrics.Vault().ObserveSettlement(p.ChainID)
	if debt, err := s.vault.ChainDebt(p.ChainID); err == nil {
		metrics.Vault().SetChainDebt(p.ChainID, debt)
	}
	s.publishGauges()
	return map[string]bool{"ok": true}, nil
}

type poolAmountParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *Server) poolLiquidityOp(params []json.RawMessage, op func(caller common.Address, amount *big.Int) error) (interface{}, *RPCError) {
	var p poolAmountParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := op(caller, amount); err != nil {
		return nil, engineError(err)
	}
	s.publishGauges()
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleEnablePool(params []json.RawMessage) (interface{}, *RPCError) {
	return s.poolLiquidityOp(params, s.vault.EnableLiquidityPool)
}

func (s *Server) handleIncreaseLiquidity(params []json.RawMessage) (interface{}, *RPCError) {
	return s.poolLiquidityOp(params, s.vault.IncreaseLiquidity)
}

func (s *Server) handleDecreaseLiquidity(params []json.RawMessage) (interface{}, *RPCError) {
	return s.poolLiquidityOp(params, s.vault.DecreaseLiquidity)
}

type migratePoolParams struct {
	Caller string `json:"caller"`
	// Pool is the new pool's address; empty or zero disables pool routing.
	Pool string `json:"pool,omitempty"`
	Seed string `json:"seed,omitempty"`
}

func (s *Server) handleMigratePool(params []json.RawMessage) (interface{}, *RPCError) {
	var p migratePoolParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	poolAddr := common.Address{}
	if strings.TrimSpace(p.Pool) != "" {
		poolAddr, rpcErr = parseAddr(p.Pool)
		if rpcErr != nil {
			return nil, rpcErr
		}
	}
	if poolAddr == (common.Address{}) {
		if err := s.vault.MigrateLiquidityPool(caller, nil, common.Address{}, nil); err != nil {
			return nil, engineError(err)
		}
		s.publishGauges()
		return map[string]bool{"ok": true}, nil
	}
	if s.pool == nil {
		return nil, &RPCError{Code: codeServerError, Message: "no pool engine configured"}
	}
	var seed *big.Int
	if strings.TrimSpace(p.Seed) != "" {
		seed, rpcErr = parseAmount(p.Seed)
		if rpcErr != nil {
			return nil, rpcErr
		}
	}
	if err := s.vault.MigrateLiquidityPool(caller, s.pool, poolAddr, seed); err != nil {
		return nil, engineError(err)
	}
	s.publishGauges()
	return map[string]bool{"ok": true}, nil
}

type rescueTokenParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token,omitempty"`
	Native bool   `json:"native,omitempty"`
}

func (s *Server) handleRescueToken(params []json.RawMessage) (interface{}, *RPCError) {
	var p rescueTokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	token := common.Address{}
	if !p.Native {
		token, rpcErr = parseAddr(p.Token)
		if rpcErr != nil {
			return nil, rpcErr
		}
	}
	swept, err := s.vault.RescueToken(caller, token, p.Native)
	if err != nil {
		return nil, engineError(err)
	}
	return &previewResult{Amount: bigString(swept)}, nil
}

type dispatchParams struct {
	Caller      string   `json:"caller"`
	ChainIDs    []uint64 `json:"chainIds"`
	Amounts     []string `json:"amounts"`
	MinAmounts  []string `json:"minAmounts"`
	FeeBudgets  []string `json:"feeBudgets"`
	RoutingData []string `json:"routingData"`
	FeeValue    string   `json:"feeValue"`
}

func (s *Server) handleDispatchAssets(params []json.RawMessage) (interface{}, *RPCError) {
	var p dispatchParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr(p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amounts, rpcErr := parseAmountSlice(p.Amounts)
	if rpcErr != nil {
		return nil, rpcErr
	}
	minAmounts, rpcErr := parseAmountSlice(p.MinAmounts)
	if rpcErr != nil {
		return nil, rpcErr
	}
	feeBudgets, rpcErr := parseAmountSlice(p.FeeBudgets)
	if rpcErr != nil {
		return nil, rpcErr
	}
	feeValue, rpcErr := parseAmount(p.FeeValue)
	if rpcErr != nil {
		return nil, rpcErr
	}
	routing := make([][]byte, len(p.RoutingData))
	for i, raw := range p.RoutingData {
		decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
		if err != nil {
			return nil, &RPCError{Code: codeInvalidParams, Message: "invalid routing data: " + err.Error()}
		}
		routing[i] = decoded
	}
	if err := s.vault.DispatchAssets(caller, amounts, minAmounts, p.ChainIDs, feeBudgets, routing, feeValue); err != nil {
		return nil, engineError(err)
	}
	for i, chainID := range p.ChainIDs {
		metrics.Vault().ObserveDispatch(chainID, amounts[i])
		if debt, err := s.vault.ChainDebt(chainID); err == nil {
			metrics.Vault().SetChainDebt(chainID, debt)
		}
	}
	s.publishGauges()
	return map[string]bool{"ok": true}, nil
}

func parseAmountSlice(raw []string) ([]*big.Int, *RPCError) {
	out := make([]*big.Int, len(raw))
	for i, item := range raw {
		amount, rpcErr := parseAmount(item)
		if rpcErr != nil {
			return nil, rpcErr
		}
		out[i] = amount
	}
	return out, nil
}

// publishGauges refreshes the share price, total assets and locked profit
// gauges after a mutation. Failures are skipped; gauges catch up on the next call.
func (s *Server) publishGauges() {
	if price, err := s.vault.SharePrice(); err == nil {
		metrics.Vault().SetSharePrice(price)
	}
	if total, err := s.vault.TotalAssets(); err == nil {
		metrics.Vault().SetTotalAssets(total)
	}
	if locked, err := s.vault.UnrealizedGains(); err == nil {
		metrics.Vault().SetLockedProfit(locked)
	}
}
