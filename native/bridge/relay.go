package bridge

import (
	"errors"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

var (
	errUnknownChain = errors.New("bridge: no route for chain")
	errNilMessage   = errors.New("bridge: nil dispatch message")
)

// ErrUnknownChain is returned when a relay has no route for the requested
// chain id.
var ErrUnknownChain = errUnknownChain

// Relay carries dispatch messages off the local chain. Implementations are
// expected to be fire-and-forget: Send returning nil means the message was
// accepted for delivery, not that it was delivered.
type Relay interface {
	// EstimateFee quotes the relay fee for moving amount to chainID.
	EstimateFee(chainID uint64, amount *big.Int) (*big.Int, error)
	// Send accepts a dispatch message for delivery.
	Send(msg *DispatchMessage) error
}

// NewMessageID returns a fresh correlation id for a dispatch message.
func NewMessageID() string {
	return uuid.NewString()
}

// FlatFeeRelay quotes a fixed per-chain fee and records accepted messages.
// It backs single-process deployments and scenario tests where no real
// messaging layer exists.
type FlatFeeRelay struct {
	mu   sync.Mutex
	fees map[uint64]*big.Int
	sent []*DispatchMessage
}

func NewFlatFeeRelay() *FlatFeeRelay {
	return &FlatFeeRelay{fees: make(map[uint64]*big.Int)}
}

// SetFee registers the quote for chainID. A zero fee is a valid route.
func (r *FlatFeeRelay) SetFee(chainID uint64, fee *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fee == nil {
		fee = big.NewInt(0)
	}
	r.fees[chainID] = new(big.Int).Set(fee)
}

func (r *FlatFeeRelay) EstimateFee(chainID uint64, amount *big.Int) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fee, ok := r.fees[chainID]
	if !ok {
		return nil, errUnknownChain
	}
	return new(big.Int).Set(fee), nil
}

func (r *FlatFeeRelay) Send(msg *DispatchMessage) error {
	if msg == nil {
		return errNilMessage
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fees[msg.ChainID]; !ok {
		return errUnknownChain
	}
	r.sent = append(r.sent, msg.Copy())
	return nil
}

// Sent returns the messages accepted so far, oldest first.
func (r *FlatFeeRelay) Sent() []*DispatchMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*DispatchMessage, len(r.sent))
	copy(out, r.sent)
	return out
}
