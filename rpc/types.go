package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/native/vault"
)

func decodeParams(params []json.RawMessage, dst interface{}) *RPCError {
	if len(params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected exactly one params object"}
	}
	if err := json.Unmarshal(params[0], dst); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

func parseAmount(raw string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &RPCError{Code: codeInvalidParams, Message: "amount required"}
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "invalid amount: " + raw}
	}
	return value, nil
}

func parseAddr(raw string) (common.Address, *RPCError) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, &RPCError{Code: codeInvalidParams, Message: "invalid address: " + raw}
	}
	return common.HexToAddress(trimmed), nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// engineError maps engine failures onto JSON-RPC errors, attaching retry data
// from the typed errors so clients can adjust and resubmit.
func engineError(err error) *RPCError {
	var tooHigh *vault.AmountTooHighError
	if errors.As(err, &tooHigh) {
		return &RPCError{Code: codeServerError, Message: err.Error(), Data: map[string]string{"max": bigString(tooHigh.Max)}}
	}
	var tooLow *vault.MinAmountTooLowError
	if errors.As(err, &tooLow) {
		return &RPCError{Code: codeServerError, Message: err.Error(), Data: map[string]string{"floor": bigString(tooLow.Floor)}}
	}
	var extra *vault.ExtraFundsError
	if errors.As(err, &extra) {
		return &RPCError{Code: codeServerError, Message: err.Error(), Data: map[string]string{"excess": bigString(extra.Excess)}}
	}
	var chainErr *vault.ChainError
	if errors.As(err, &chainErr) {
		return &RPCError{Code: codeServerError, Message: err.Error(), Data: map[string]uint64{"chainId": chainErr.ChainID}}
	}
	var feeErr *vault.FeeError
	if errors.As(err, &feeErr) {
		return &RPCError{Code: codeServerError, Message: err.Error(), Data: map[string]interface{}{"name": feeErr.Name, "bps": feeErr.Bps, "ceiling": feeErr.Ceiling}}
	}
	return &RPCError{Code: codeServerError, Message: err.Error()}
}
