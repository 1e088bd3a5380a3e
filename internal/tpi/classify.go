package tpi

// HashResponse is a single committee member's reported block hash for a
// slot.
type HashResponse struct {
	ValidatorID string
	BlockHash   string
}

// Outcome is the consensus classification enumerated in spec.md §4.F.
type Outcome int

const (
	InsufficientData Outcome = iota
	NoConsensus
	Perfect
	TwoOfThree
	TwoOfTwo
)

// String renders the outcome as the lowercase label used for the
// node_tpi_outcome_total metric.
func (o Outcome) String() string {
	switch o {
	case Perfect:
		return "perfect"
	case TwoOfThree:
		return "two_of_three"
	case TwoOfTwo:
		return "two_of_two"
	case NoConsensus:
		return "no_consensus"
	default:
		return "insufficient_data"
	}
}

// Classification is the result of applying the consensus rule to a
// received-hashes set.
type Classification struct {
	Outcome Outcome
	Hash    string // the agreed-upon hash, when Outcome reached consensus
	Outlier string // the dissenting validator id, where applicable
}

// Reached reports whether this classification is sufficient to proceed to
// broadcaster selection (Perfect, TwoOfThree, or TwoOfTwo).
func (c Classification) Reached() bool {
	switch c.Outcome {
	case Perfect, TwoOfThree, TwoOfTwo:
		return true
	default:
		return false
	}
}

// Classify applies the TPI consensus rule of spec.md §4.F to the set of
// hash responses collected for a slot.
func Classify(responses []HashResponse) Classification {
	if len(responses) < 2 {
		return Classification{Outcome: InsufficientData}
	}

	if len(responses) == 2 {
		if responses[0].BlockHash == responses[1].BlockHash {
			return Classification{Outcome: TwoOfTwo, Hash: responses[0].BlockHash, Outlier: "missing_validator"}
		}
		return Classification{Outcome: NoConsensus}
	}

	// len(responses) >= 3: spec.md classifies "exactly 3"; with more than
	// 3 reporting committee members would itself be a bug (committee size
	// is capped at 3), so we fold any larger set into the same exactly-3
	// logic over its first three responses.
	three := responses
	if len(three) > 3 {
		three = three[:3]
	}

	counts := make(map[string][]string)
	for _, r := range three {
		counts[r.BlockHash] = append(counts[r.BlockHash], r.ValidatorID)
	}

	if len(counts) == 1 {
		return Classification{Outcome: Perfect, Hash: three[0].BlockHash}
	}

	for hash, ids := range counts {
		if len(ids) >= 2 {
			outlier := ""
			for _, r := range three {
				if r.BlockHash != hash {
					outlier = r.ValidatorID
					break
				}
			}
			return Classification{Outcome: TwoOfThree, Hash: hash, Outlier: outlier}
		}
	}

	return Classification{Outcome: NoConsensus}
}
