package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

// MempoolCap is the maximum number of pending transactions retained at once
// (spec.md §3).
const MempoolCap = 10_000

// Mempool is an insertion-ordered pending-transaction pool with dedup.
type Mempool struct {
	mu      sync.Mutex
	pending []Transaction
	seen    map[string]struct{}
}

// NewMempool creates an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{
		seen: make(map[string]struct{}),
	}
}

// dedupKey is SHA-256 over from|to|amount|nonce|fee|signature.
func dedupKey(tx Transaction) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%d|%s", tx.From, tx.To, tx.Amount, tx.Nonce, tx.Fee, tx.Signature)
	return string(h.Sum(nil))
}

// Add enforces the size cap and the dedup set. Returns false if the
// mempool is full or the transaction is a duplicate.
func (m *Mempool) Add(tx Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) >= MempoolCap {
		return false
	}

	key := dedupKey(tx)
	if _, dup := m.seen[key]; dup {
		return false
	}

	m.seen[key] = struct{}{}
	m.pending = append(m.pending, tx)
	return true
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// GetPending drains up to max transactions from the head of the pool,
// removes their dedup hashes, and returns them sorted deterministically by
// SHA-256 of (from, to, amount) — a content-addressed order independent of
// arrival order, so that two nodes building from the same mempool snapshot
// produce byte-identical blocks.
func (m *Mempool) GetPending(max int) []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.pending)
	if count > max {
		count = max
	}

	drained := make([]Transaction, count)
	copy(drained, m.pending[:count])
	m.pending = m.pending[count:]

	for _, tx := range drained {
		delete(m.seen, dedupKey(tx))
	}

	sort.Slice(drained, func(i, j int) bool {
		return bytes.Compare(orderingKey(drained[i]), orderingKey(drained[j])) < 0
	})

	return drained
}

func orderingKey(tx Transaction) []byte {
	h := sha256.New()
	var buf8 [8]byte
	h.Write([]byte(tx.From))
	h.Write([]byte(tx.To))
	binary.LittleEndian.PutUint64(buf8[:], tx.Amount)
	h.Write(buf8[:])
	return h.Sum(nil)
}
