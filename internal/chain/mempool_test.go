package chain

import "testing"

func sampleTx(from string, nonce uint64) Transaction {
	return Transaction{From: from, To: "bob", Amount: 10, Nonce: nonce, Fee: 1, Signature: "sig"}
}

func TestMempoolAddTwiceKeepsOne(t *testing.T) {
	m := NewMempool()
	tx := sampleTx("alice", 0)

	if !m.Add(tx) {
		t.Fatal("first add should succeed")
	}
	if m.Add(tx) {
		t.Fatal("duplicate add should be rejected")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 pending tx, got %d", m.Len())
	}
}

func TestMempoolRespectsCap(t *testing.T) {
	m := NewMempool()
	for i := 0; i < MempoolCap; i++ {
		tx := Transaction{From: "alice", To: "bob", Amount: uint64(i), Nonce: uint64(i), Fee: 0, Signature: "s"}
		if !m.Add(tx) {
			t.Fatalf("add %d should succeed under the cap", i)
		}
	}
	overflow := Transaction{From: "alice", To: "bob", Amount: 999999, Nonce: 999999, Fee: 0, Signature: "s"}
	if m.Add(overflow) {
		t.Fatal("add beyond cap should be rejected")
	}
}

func TestMempoolGetPendingDrainsAndDedupsRemoved(t *testing.T) {
	m := NewMempool()
	tx1 := sampleTx("alice", 0)
	tx2 := sampleTx("bob", 0)
	m.Add(tx1)
	m.Add(tx2)

	drained := m.GetPending(10)
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained, got %d", len(drained))
	}
	if m.Len() != 0 {
		t.Fatalf("mempool should be empty after draining all, got %d", m.Len())
	}

	// re-adding the same transactions should succeed now that their dedup
	// hashes were removed on drain
	if !m.Add(tx1) {
		t.Fatal("re-add after drain should succeed")
	}
}

func TestMempoolGetPendingOrderIsContentAddressed(t *testing.T) {
	m := NewMempool()
	tx1 := sampleTx("zzz", 0)
	tx2 := sampleTx("aaa", 0)
	m.Add(tx1)
	m.Add(tx2)

	first := m.GetPending(10)

	m2 := NewMempool()
	m2.Add(tx2)
	m2.Add(tx1)
	second := m2.GetPending(10)

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].From != second[i].From {
			t.Fatalf("order diverges at %d: %s vs %s", i, first[i].From, second[i].From)
		}
	}
}

func TestMempoolGetPendingRespectsMax(t *testing.T) {
	m := NewMempool()
	m.Add(sampleTx("alice", 0))
	m.Add(sampleTx("bob", 0))
	m.Add(sampleTx("carol", 0))

	drained := m.GetPending(2)
	if len(drained) != 2 {
		t.Fatalf("expected 2, got %d", len(drained))
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", m.Len())
	}
}
