package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/core/types"
)

// AccountYieldSource parks the pool's real leg in a dedicated account inside
// the state manager so custody survives restarts. It accrues no yield on its
// own; remote settlements land through the vault's debt ledger instead.
type AccountYieldSource struct {
	manager *Manager
	holder  common.Address
}

// NewAccountYieldSource builds a yield source storing funds under holder.
func NewAccountYieldSource(manager *Manager, holder common.Address) *AccountYieldSource {
	return &AccountYieldSource{manager: manager, holder: holder}
}

func (s *AccountYieldSource) account() (*types.Account, error) {
	acct, err := s.manager.GetAccount(s.holder)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		acct = types.NewAccount(s.holder)
	}
	return acct, nil
}

// Deposit takes custody of amount and reports the full amount received.
func (s *AccountYieldSource) Deposit(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	acct, err := s.account()
	if err != nil {
		return nil, err
	}
	acct.Balance = new(big.Int).Add(acct.Balance, amount)
	if err := s.manager.PutAccount(s.holder, acct); err != nil {
		return nil, err
	}
	return new(big.Int).Set(amount), nil
}

// Withdraw releases up to amount back to the pool, capped at the held balance.
func (s *AccountYieldSource) Withdraw(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	acct, err := s.account()
	if err != nil {
		return nil, err
	}
	released := new(big.Int).Set(amount)
	if acct.Balance.Cmp(released) < 0 {
		released.Set(acct.Balance)
	}
	acct.Balance = new(big.Int).Sub(acct.Balance, released)
	if err := s.manager.PutAccount(s.holder, acct); err != nil {
		return nil, err
	}
	return released, nil
}

// Held reports the balance currently in custody.
func (s *AccountYieldSource) Held() (*big.Int, error) {
	acct, err := s.account()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acct.Balance), nil
}
