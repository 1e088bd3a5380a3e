// Package consensus holds the validator registry: stake, epoch counter,
// and stake-weighted producer selection.
package consensus

import (
	"sort"
	"sync"
	"time"
)

// EpochDuration is the time a single epoch runs before rotating
// (spec.md §4.C).
const EpochDuration = 21_600 * time.Second

// Validator is a registered staking participant. Stake doubles as its
// merit score for TPI broadcaster selection.
type Validator struct {
	Address string
	Stake   uint64
	Active  bool
}

// Registry holds the validator set and drives epoch rotation.
type Registry struct {
	mu sync.RWMutex

	validators map[string]*Validator
	totalStake uint64

	currentEpoch uint64
	epochStart   time.Time
}

// NewRegistry creates an empty validator registry with the epoch clock
// starting now.
func NewRegistry() *Registry {
	return &Registry{
		validators: make(map[string]*Validator),
		epochStart: time.Now(),
	}
}

// Register adds or updates a validator's stake. Newly registered
// validators are active by default.
func (r *Registry) Register(address string, stake uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.validators[address]; ok {
		r.totalStake -= existing.Stake
	}
	r.validators[address] = &Validator{Address: address, Stake: stake, Active: true}
	r.totalStake += stake
}

// CurrentEpoch returns the current epoch counter.
func (r *Registry) CurrentEpoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentEpoch
}

// MaybeRotateEpoch advances the epoch counter if EpochDuration has elapsed
// since the last rotation. Call this periodically from the slot driver.
func (r *Registry) MaybeRotateEpoch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.epochStart) >= EpochDuration {
		r.currentEpoch++
		r.epochStart = time.Now()
	}
}

// ActiveValidators returns all active validators with (address, stake)
// pairs, sorted by address for deterministic iteration across nodes.
func (r *Registry) ActiveValidators() []Validator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addrs := make([]string, 0, len(r.validators))
	for addr, v := range r.validators {
		if v.Active {
			addrs = append(addrs, addr)
		}
	}
	sort.Strings(addrs)

	out := make([]Validator, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, *r.validators[addr])
	}
	return out
}

// SelectProducer implements the stake-weighted leader selection of
// spec.md §4.C: seed = slot XOR epoch, reduced mod total stake, then walk
// the deterministically sorted validator set accumulating stake until the
// running total exceeds the reduced seed.
func (r *Registry) SelectProducer(slot uint64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.totalStake == 0 {
		return "", false
	}

	addrs := make([]string, 0, len(r.validators))
	for addr, v := range r.validators {
		if v.Active {
			addrs = append(addrs, addr)
		}
	}
	sort.Strings(addrs)
	if len(addrs) == 0 {
		return "", false
	}

	seed := slot ^ r.currentEpoch
	target := seed % r.totalStake

	var accumulated uint64
	for _, addr := range addrs {
		accumulated += r.validators[addr].Stake
		if accumulated > target {
			return addr, true
		}
	}
	return "", false
}
