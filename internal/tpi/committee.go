// Package tpi implements the Triple-Producer-Interlock committee
// agreement protocol and its single-racer fallback.
package tpi

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/validandis/node/internal/consensus"
)

// GroupSize is the target TPI committee size.
const GroupSize = 3

// SelectCommittee computes the deterministic pseudo-random subset of up to
// GroupSize validators for slot, per spec.md §4.F: seed = SHA-256(slot_le),
// then sort validator indices by SHA-256(seed || validator_id) and take
// the first min(3, |V|). validators must already be in deterministic
// (sorted-by-address) order.
func SelectCommittee(slot uint64, validators []consensus.Validator) []consensus.Validator {
	if len(validators) == 0 {
		return nil
	}

	seed := seedForSlot(slot)

	type scored struct {
		idx   int
		score [32]byte
	}
	scores := make([]scored, len(validators))
	for i, v := range validators {
		h := sha256.New()
		h.Write(seed[:])
		h.Write([]byte(v.Address))
		var sum [32]byte
		copy(sum[:], h.Sum(nil))
		scores[i] = scored{idx: i, score: sum}
	}

	sort.Slice(scores, func(i, j int) bool {
		for b := 0; b < 32; b++ {
			if scores[i].score[b] != scores[j].score[b] {
				return scores[i].score[b] < scores[j].score[b]
			}
		}
		return false
	})

	size := GroupSize
	if len(validators) < size {
		size = len(validators)
	}

	committee := make([]consensus.Validator, size)
	for i := 0; i < size; i++ {
		committee[i] = validators[scores[i].idx]
	}
	return committee
}

func seedForSlot(slot uint64) [32]byte {
	var buf8 [8]byte
	binary.LittleEndian.PutUint64(buf8[:], slot)
	return sha256.Sum256(buf8[:])
}

// SelectBroadcaster returns the committee member with the highest stake
// (merit). Ties break on the first such member in committee's existing
// order, which callers pass already sorted deterministically.
func SelectBroadcaster(committee []consensus.Validator) (consensus.Validator, bool) {
	if len(committee) == 0 {
		return consensus.Validator{}, false
	}

	best := committee[0]
	for _, v := range committee[1:] {
		if v.Stake > best.Stake {
			best = v
		}
	}
	return best, true
}
