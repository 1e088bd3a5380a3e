// Package tokenomics holds the reward-schedule constants and per-epoch
// reward computation consumed by the chain state when crediting block
// rewards. It is pure data: no locking, no I/O, no dependency on any other
// package in this module.
package tokenomics

import "fmt"

const (
	// TotalSupply is expressed in nano-VLID (9 decimals).
	TotalSupply = 33_000_000_000_000_000
	Decimals    = 9
	Symbol      = "VLID"

	// SupplyCap bounds total minted supply (spec.md §3 invariant).
	SupplyCap = TotalSupply

	BlocksPerEpoch = 3_150_000 * 7
	EpochCount     = 3

	l1ValidatorsPct = 0.15
	blockRewardPct  = 0.60
	tpiRewardPct    = 0.10
	racerRewardPct  = 0.25
	snapshotPct     = 0.05
)

// epochPercentages is the share of TotalSupply minted across each epoch's
// lifetime: 60% in epoch 0, 30% in epoch 1, 10% in epoch 2.
var epochPercentages = [EpochCount]float64{0.60, 0.30, 0.10}

// EpochRewards is the set of per-block reward budgets for a given epoch.
type EpochRewards struct {
	BlockReward        uint64
	TPIRewardPerMember uint64
	RacerReward        uint64
	SnapshotReward     uint64
}

// ForEpoch computes the reward budgets for the given epoch. Epochs beyond
// EpochCount mint nothing.
func ForEpoch(epoch uint64) EpochRewards {
	if epoch >= EpochCount {
		return EpochRewards{}
	}

	totalEpochSupply := uint64(float64(TotalSupply) * epochPercentages[epoch])
	l1Budget := uint64(float64(totalEpochSupply) * l1ValidatorsPct)

	blockBudget := uint64(float64(l1Budget) * blockRewardPct)
	tpiBudget := uint64(float64(l1Budget) * tpiRewardPct)
	racerBudget := uint64(float64(l1Budget) * racerRewardPct)
	snapshotBudget := uint64(float64(l1Budget) * snapshotPct)

	return EpochRewards{
		BlockReward:        blockBudget / BlocksPerEpoch,
		TPIRewardPerMember: tpiBudget / (BlocksPerEpoch * 3),
		RacerReward:        (racerBudget / BlocksPerEpoch) * 100,
		SnapshotReward:     snapshotBudget / BlocksPerEpoch,
	}
}

// FormatVLID renders a nano-VLID amount as a human-readable token value.
func FormatVLID(nanoVLID uint64) string {
	vlid := float64(nanoVLID) / 1_000_000_000.0
	return fmt.Sprintf("%.*f %s", Decimals, vlid, Symbol)
}
