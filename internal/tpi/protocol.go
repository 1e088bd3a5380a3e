package tpi

import (
	"time"

	"github.com/validandis/node/internal/chain"
	"github.com/validandis/node/internal/consensus"
)

// Timing constants for the per-slot TPI state machine (spec.md §4.F, §5).
const (
	CollectDeadline = 6000 * time.Millisecond
	WaitDeadline    = 8000 * time.Millisecond
	WaitPollEvery   = 100 * time.Millisecond
)

// Deps supplies everything RunSlot needs from the rest of the node. It is
// expressed as narrow function values rather than concrete collaborator
// types so this package never imports internal/node or internal/network.
type Deps struct {
	ValidatorID string
	Validators  []consensus.Validator

	// BuildCandidate assembles this node's candidate block for the slot
	// from its local mempool and known parent.
	BuildCandidate func() chain.Block

	// EmitHash gossips this node's own TpiHash for the slot.
	EmitHash func(slot uint64, hash string)

	// Hashes delivers TpiHash responses from other committee members as
	// they arrive over the network.
	Hashes <-chan HashResponse

	// Broadcast gossips a full block (the Broadcast and Racer states).
	Broadcast func(block chain.Block)

	// GetBlock reports whether a block has been committed for slot
	// (polled during Wait).
	GetBlock func(slot uint64) (chain.Block, bool)

	// SpeedOf returns a validator's current racer speed metric.
	SpeedOf func(address string) uint64

	// CollectDeadline, WaitDeadline, and WaitPollEvery override the
	// package defaults when non-zero. Tests use this to avoid running
	// the real 6s/8s production timings.
	CollectDeadline time.Duration
	WaitDeadline    time.Duration
	WaitPollEvery   time.Duration
}

func (d Deps) collectDeadline() time.Duration {
	if d.CollectDeadline > 0 {
		return d.CollectDeadline
	}
	return CollectDeadline
}

func (d Deps) waitDeadline() time.Duration {
	if d.WaitDeadline > 0 {
		return d.WaitDeadline
	}
	return WaitDeadline
}

func (d Deps) waitPollEvery() time.Duration {
	if d.WaitPollEvery > 0 {
		return d.WaitPollEvery
	}
	return WaitPollEvery
}

// Result reports what, if anything, this node did for the slot.
type Result struct {
	Produced bool // this node built and broadcast the block itself
	Adopted  bool // this node learned the slot's block from the network
	Block    chain.Block

	// Classification is the committee's hash-agreement outcome. It is the
	// zero value (InsufficientData) when this node was not on the slot's
	// committee, since no hashes were ever collected to classify.
	Classification Classification

	// RacerFallback reports whether the slot fell through to the
	// Wait/Racer stage rather than being settled by the committee's
	// broadcaster.
	RacerFallback bool
}

// RunSlot drives one slot's Compute -> Collect -> Classify -> Decide ->
// Broadcast/Wait -> Racer state machine from a single node's point of view,
// per spec.md §4.F. Committee members attempt hash agreement first; every
// node (committee member or not) falls through to Wait/Racer if agreement
// isn't reached or it isn't the broadcaster.
func RunSlot(slot uint64, deps Deps) Result {
	committee := SelectCommittee(slot, deps.Validators)

	onCommittee := false
	for _, v := range committee {
		if v.Address == deps.ValidatorID {
			onCommittee = true
			break
		}
	}
	if !onCommittee {
		result := waitThenRace(slot, deps)
		result.RacerFallback = true
		return result
	}

	// Compute
	candidate := deps.BuildCandidate()
	myHash := chain.ComputeHash(candidate)
	deps.EmitHash(slot, myHash)

	// Collect
	received := []HashResponse{{ValidatorID: deps.ValidatorID, BlockHash: myHash}}
	deadline := time.NewTimer(deps.collectDeadline())
	defer deadline.Stop()

collect:
	for len(received) < 3 {
		select {
		case hr := <-deps.Hashes:
			received = append(received, hr)
		case <-deadline.C:
			break collect
		}
	}

	// Classify
	classification := Classify(received)

	// Decide
	if classification.Reached() {
		if broadcaster, ok := SelectBroadcaster(committee); ok && broadcaster.Address == deps.ValidatorID {
			// Broadcast
			deps.Broadcast(candidate)
			return Result{Produced: true, Block: candidate, Classification: classification}
		}
	}

	// Wait (then Racer)
	result := waitThenRace(slot, deps)
	result.Classification = classification
	result.RacerFallback = true
	return result
}

func waitThenRace(slot uint64, deps Deps) Result {
	deadline := time.Now().Add(deps.waitDeadline())
	ticker := time.NewTicker(deps.waitPollEvery())
	defer ticker.Stop()

	for {
		if b, ok := deps.GetBlock(slot); ok {
			return Result{Adopted: true, Block: b}
		}
		if !time.Now().Before(deadline) {
			break
		}
		<-ticker.C
	}

	// Racer
	speedOf := deps.SpeedOf
	if speedOf == nil {
		speedOf = func(string) uint64 { return 0 }
	}
	speeds := ValidatorsToSpeeds(deps.Validators, speedOf)
	racer, ok := SelectRacer(slot, speeds)
	if ok && racer == deps.ValidatorID {
		candidate := deps.BuildCandidate()
		deps.Broadcast(candidate)
		return Result{Produced: true, Block: candidate}
	}
	return Result{}
}
