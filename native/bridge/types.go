package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DispatchMessage is the payload handed to a relay when the vault moves assets
// to a remote allocator. MessageID is assigned by the dispatching side and is
// only used for log correlation: settlement never references it.
type DispatchMessage struct {
	MessageID       string
	ChainID         uint64
	Amount          *big.Int
	MinAmount       *big.Int
	FeeBudget       *big.Int
	RemoteAllocator common.Address
	RemoteBridge    common.Address
	RoutingData     []byte
	DispatchedAt    int64
}

// Copy returns a deep copy safe to retain after the dispatch call returns.
func (m *DispatchMessage) Copy() *DispatchMessage {
	if m == nil {
		return nil
	}
	clone := *m
	if m.Amount != nil {
		clone.Amount = new(big.Int).Set(m.Amount)
	}
	if m.MinAmount != nil {
		clone.MinAmount = new(big.Int).Set(m.MinAmount)
	}
	if m.FeeBudget != nil {
		clone.FeeBudget = new(big.Int).Set(m.FeeBudget)
	}
	if m.RoutingData != nil {
		clone.RoutingData = append([]byte(nil), m.RoutingData...)
	}
	return &clone
}

// Settlement is the inbound half of the protocol: a remote allocator reporting
// its debt or returning funds. Settlements arrive asynchronously, unordered,
// and at least once.
type Settlement struct {
	ChainID    uint64
	Amount     *big.Int
	ReceivedAt int64
}
