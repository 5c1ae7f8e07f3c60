package metrics

import (
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics tracks the accounting engine's externally visible activity.
type VaultMetrics struct {
	deposits        *prometheus.CounterVec
	withdrawals     *prometheus.CounterVec
	sharePrice      prometheus.Gauge
	totalAssets     prometheus.Gauge
	lockedProfit    prometheus.Gauge
	chainDebt       *prometheus.GaugeVec
	dispatched      *prometheus.CounterVec
	settlements     *prometheus.CounterVec
	feesTakenShares prometheus.Counter
	poolSwaps       *prometheus.CounterVec
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yakisoba_vault_deposits_total",
				Help: "Count of accepted deposit and mint operations by entry point.",
			}, []string{"entry"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yakisoba_vault_withdrawals_total",
				Help: "Count of accepted withdraw and redeem operations by entry point.",
			}, []string{"entry"}),
			sharePrice: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "yakisoba_vault_share_price",
				Help: "Current share price in asset base units per share unit.",
			}),
			totalAssets: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "yakisoba_vault_total_assets",
				Help: "Total assets under management in base units.",
			}),
			lockedProfit: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "yakisoba_vault_locked_profit",
				Help: "Profit still locked by the linear release window, in base units.",
			}),
			chainDebt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "yakisoba_vault_chain_debt",
				Help: "Outstanding debt booked against each remote chain.",
			}, []string{"chain"}),
			dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yakisoba_vault_dispatched_total",
				Help: "Assets dispatched to remote chains, in base units, by chain.",
			}, []string{"chain"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yakisoba_vault_settlements_total",
				Help: "Count of bridged-fund settlements received, by chain.",
			}, []string{"chain"}),
			feesTakenShares: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yakisoba_vault_fee_shares_total",
				Help: "Cumulative shares minted to the owner as fees.",
			}),
			poolSwaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yakisoba_pool_swaps_total",
				Help: "Count of pool swaps routed by the vault, by direction.",
			}, []string{"direction"}),
		}
		prometheus.MustRegister(
			vaultRegistry.deposits,
			vaultRegistry.withdrawals,
			vaultRegistry.sharePrice,
			vaultRegistry.totalAssets,
			vaultRegistry.lockedProfit,
			vaultRegistry.chainDebt,
			vaultRegistry.dispatched,
			vaultRegistry.settlements,
			vaultRegistry.feesTakenShares,
			vaultRegistry.poolSwaps,
		)
	})
	return vaultRegistry
}

func (m *VaultMetrics) ObserveDeposit(entry string) {
	if m == nil {
		return
	}
	if entry == "" {
		entry = "unknown"
	}
	m.deposits.WithLabelValues(entry).Inc()
}

func (m *VaultMetrics) ObserveWithdrawal(entry string) {
	if m == nil {
		return
	}
	if entry == "" {
		entry = "unknown"
	}
	m.withdrawals.WithLabelValues(entry).Inc()
}

func (m *VaultMetrics) SetSharePrice(price *big.Int) {
	if m == nil {
		return
	}
	m.sharePrice.Set(bigToFloat(price))
}

func (m *VaultMetrics) SetTotalAssets(total *big.Int) {
	if m == nil {
		return
	}
	m.totalAssets.Set(bigToFloat(total))
}

func (m *VaultMetrics) SetLockedProfit(locked *big.Int) {
	if m == nil {
		return
	}
	m.lockedProfit.Set(bigToFloat(locked))
}

func (m *VaultMetrics) SetChainDebt(chainID uint64, debt *big.Int) {
	if m == nil {
		return
	}
	m.chainDebt.WithLabelValues(fmt.Sprintf("%d", chainID)).Set(bigToFloat(debt))
}

func (m *VaultMetrics) ObserveDispatch(chainID uint64, amount *big.Int) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(fmt.Sprintf("%d", chainID)).Add(bigToFloat(amount))
}

func (m *VaultMetrics) ObserveSettlement(chainID uint64) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(fmt.Sprintf("%d", chainID)).Inc()
}

func (m *VaultMetrics) ObserveFeeShares(shares *big.Int) {
	if m == nil {
		return
	}
	m.feesTakenShares.Add(bigToFloat(shares))
}

func (m *VaultMetrics) ObservePoolSwap(direction string) {
	if m == nil {
		return
	}
	if direction == "" {
		direction = "unknown"
	}
	m.poolSwaps.WithLabelValues(direction).Inc()
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(value).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
