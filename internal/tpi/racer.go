package tpi

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/validandis/node/internal/consensus"
)

// SpeedRanked pairs a validator address with its speed metric (lower is
// faster), computed from recent block production times.
type SpeedRanked struct {
	Address string
	Speed   uint64
}

// SelectRacer picks the single deterministic fallback producer for a slot
// when TPI fails and no block arrives in time (spec.md §4.F). It takes the
// up-to-10 fastest validators, then indexes into that pool with
// u64_le(SHA-256(slot_le || "racer")[0:8]) mod pool_size.
func SelectRacer(slot uint64, speeds []SpeedRanked) (string, bool) {
	if len(speeds) == 0 {
		return "", false
	}

	sorted := make([]SpeedRanked, len(speeds))
	copy(sorted, speeds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Speed < sorted[j].Speed
	})

	poolSize := 10
	if len(sorted) < poolSize {
		poolSize = len(sorted)
	}
	pool := sorted[:poolSize]

	var buf8 [8]byte
	binary.LittleEndian.PutUint64(buf8[:], slot)
	h := sha256.New()
	h.Write(buf8[:])
	h.Write([]byte("racer"))
	sum := h.Sum(nil)

	index := binary.LittleEndian.Uint64(sum[:8]) % uint64(len(pool))
	return pool[index].Address, true
}

// CalculateSpeed derives a validator's speed metric from its recent blocks:
// the average inter-block production time, capped per-interval at 15s to
// bound the influence of a single slow block. Validators with no recent
// blocks are the slowest possible (u64 max), so they sort to the back of
// the racer pool rather than the front.
func CalculateSpeed(validatorID string, recentBlocksByProducer []uint64) uint64 {
	if len(recentBlocksByProducer) == 0 {
		return ^uint64(0)
	}
	if len(recentBlocksByProducer) == 1 {
		return 0
	}

	var total uint64
	for i := 1; i < len(recentBlocksByProducer); i++ {
		diff := recentBlocksByProducer[i] - recentBlocksByProducer[i-1]
		if diff > 15_000 {
			diff = 15_000
		}
		total += diff
	}
	return total / uint64(len(recentBlocksByProducer)-1)
}

// ValidatorsToSpeeds is a convenience adapter pairing each validator, in
// the given order, with speedOf(address). Stake plays no part. Every
// validator is included, so the racer pool is never empty for a non-empty
// set; validators with equal speed (e.g. none has history at genesis) keep
// their input order through SelectRacer's stable sort.
func ValidatorsToSpeeds(validators []consensus.Validator, speedOf func(address string) uint64) []SpeedRanked {
	out := make([]SpeedRanked, len(validators))
	for i, v := range validators {
		out[i] = SpeedRanked{Address: v.Address, Speed: speedOf(v.Address)}
	}
	return out
}
