package tpi

import (
	"testing"

	"github.com/validandis/node/internal/consensus"
)

func TestClassifyPerfect(t *testing.T) {
	responses := []HashResponse{
		{"v1", "h_a"}, {"v2", "h_a"}, {"v3", "h_a"},
	}
	c := Classify(responses)
	if c.Outcome != Perfect || c.Hash != "h_a" || !c.Reached() {
		t.Fatalf("expected Perfect(h_a), got %+v", c)
	}
}

func TestClassifyTwoOfThree(t *testing.T) {
	responses := []HashResponse{
		{"v1", "h_a"}, {"v3", "h_a"}, {"v2", "h_b"},
	}
	c := Classify(responses)
	if c.Outcome != TwoOfThree || c.Hash != "h_a" || c.Outlier != "v2" || !c.Reached() {
		t.Fatalf("expected TwoOfThree(h_a, v2), got %+v", c)
	}
}

func TestClassifyNoConsensusThreeDistinct(t *testing.T) {
	responses := []HashResponse{
		{"v1", "h_a"}, {"v2", "h_b"}, {"v3", "h_c"},
	}
	c := Classify(responses)
	if c.Outcome != NoConsensus || c.Reached() {
		t.Fatalf("expected NoConsensus, got %+v", c)
	}
}

func TestClassifyTwoOfTwoEqual(t *testing.T) {
	responses := []HashResponse{{"v1", "h_a"}, {"v2", "h_a"}}
	c := Classify(responses)
	if c.Outcome != TwoOfTwo || c.Hash != "h_a" || !c.Reached() {
		t.Fatalf("expected TwoOfTwo(h_a), got %+v", c)
	}
}

func TestClassifyTwoOfTwoUnequal(t *testing.T) {
	responses := []HashResponse{{"v1", "h_a"}, {"v2", "h_b"}}
	c := Classify(responses)
	if c.Outcome != NoConsensus || c.Reached() {
		t.Fatalf("expected NoConsensus, got %+v", c)
	}
}

func TestClassifyInsufficientData(t *testing.T) {
	if c := Classify(nil); c.Outcome != InsufficientData || c.Reached() {
		t.Fatalf("expected InsufficientData for 0 responses, got %+v", c)
	}
	if c := Classify([]HashResponse{{"v1", "h_a"}}); c.Outcome != InsufficientData {
		t.Fatalf("expected InsufficientData for 1 response, got %+v", c)
	}
}

func TestSelectCommitteeDeterministicAndBounded(t *testing.T) {
	vs := []consensus.Validator{
		{Address: "v1", Stake: 100, Active: true},
		{Address: "v2", Stake: 200, Active: true},
		{Address: "v3", Stake: 300, Active: true},
		{Address: "v4", Stake: 50, Active: true},
	}

	c1 := SelectCommittee(7, vs)
	c2 := SelectCommittee(7, vs)

	if len(c1) != GroupSize {
		t.Fatalf("expected committee size %d, got %d", GroupSize, len(c1))
	}
	for i := range c1 {
		if c1[i].Address != c2[i].Address {
			t.Fatalf("committee selection must be deterministic for the same slot")
		}
	}
}

func TestSelectCommitteeShrinksForSmallValidatorSet(t *testing.T) {
	vs := []consensus.Validator{{Address: "v1", Stake: 100, Active: true}}
	c := SelectCommittee(0, vs)
	if len(c) != 1 {
		t.Fatalf("expected committee of 1, got %d", len(c))
	}
}

func TestSelectBroadcasterPicksHighestStake(t *testing.T) {
	committee := []consensus.Validator{
		{Address: "v1", Stake: 100},
		{Address: "v2", Stake: 200},
		{Address: "v3", Stake: 300},
	}
	b, ok := SelectBroadcaster(committee)
	if !ok || b.Address != "v3" {
		t.Fatalf("expected v3 as broadcaster, got %+v ok=%v", b, ok)
	}
}

func TestSelectBroadcasterTieBreaksOnOrder(t *testing.T) {
	committee := []consensus.Validator{
		{Address: "v1", Stake: 300},
		{Address: "v2", Stake: 300},
	}
	b, ok := SelectBroadcaster(committee)
	if !ok || b.Address != "v1" {
		t.Fatalf("expected first-in-order v1 on tie, got %+v", b)
	}
}

func TestSelectRacerDeterministic(t *testing.T) {
	speeds := []SpeedRanked{
		{Address: "v1", Speed: 1000},
		{Address: "v2", Speed: 500},
		{Address: "v3", Speed: 2000},
	}
	r1, ok1 := SelectRacer(42, speeds)
	r2, ok2 := SelectRacer(42, speeds)
	if !ok1 || !ok2 || r1 != r2 {
		t.Fatalf("racer selection must be deterministic: %s vs %s", r1, r2)
	}
}

func TestSelectRacerEmptyPool(t *testing.T) {
	if _, ok := SelectRacer(0, nil); ok {
		t.Fatal("expected no racer for an empty pool")
	}
}

func TestCalculateSpeedNoBlocksIsSlowest(t *testing.T) {
	if got := CalculateSpeed("v1", nil); got != ^uint64(0) {
		t.Fatalf("expected max speed value for no blocks, got %d", got)
	}
}
