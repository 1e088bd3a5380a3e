// Package peer implements the bounded peer table: known/connected peers
// with last-seen timestamps and staleness eviction.
package peer

import (
	"math/rand"
	"sync"
	"time"
)

// Cap is the maximum number of peer records retained at once
// (spec.md §3).
const Cap = 50

// StaleAfter is how long an unseen, disconnected peer is kept before
// eviction (spec.md §3, §5).
const StaleAfter = 300 * time.Second

// Record is a single peer's state.
type Record struct {
	Address   string
	LastSeen  time.Time
	Connected bool
}

// Table is an insertion-ordered, capped set of peer records.
type Table struct {
	mu sync.Mutex

	order []string // preserves first-seen insertion order
	peers map[string]*Record
}

// NewTable creates an empty peer table.
func NewTable() *Table {
	return &Table{peers: make(map[string]*Record)}
}

// Add inserts addr if not already present and the table isn't at capacity.
// No-op otherwise.
func (t *Table) Add(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.peers[addr]; exists {
		return
	}
	if len(t.peers) >= Cap {
		return
	}

	t.peers[addr] = &Record{Address: addr, LastSeen: time.Now(), Connected: false}
	t.order = append(t.order, addr)
}

// MarkConnected marks addr as connected and refreshes its last-seen time.
func (t *Table) MarkConnected(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[addr]; ok {
		p.Connected = true
		p.LastSeen = time.Now()
	}
}

// MarkDisconnected marks addr as disconnected.
func (t *Table) MarkDisconnected(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[addr]; ok {
		p.Connected = false
	}
}

// UpdateSeen refreshes addr's last-seen timestamp.
func (t *Table) UpdateSeen(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[addr]; ok {
		p.LastSeen = time.Now()
	}
}

// ConnectedPeers returns the addresses of all connected peers.
func (t *Table) ConnectedPeers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	for _, addr := range t.order {
		if p, ok := t.peers[addr]; ok && p.Connected {
			out = append(out, addr)
		}
	}
	return out
}

// AllKnownPeers returns every known peer address, in first-seen order.
func (t *Table) AllKnownPeers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.order))
	out = append(out, t.order...)
	return out
}

// PeersToConnect returns up to 10 disconnected entries whose last_seen is
// within StaleAfter, in random order, per spec.md §4.D.
func (t *Table) PeersToConnect() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var candidates []string
	for _, addr := range t.order {
		p := t.peers[addr]
		if p == nil || p.Connected {
			continue
		}
		if now.Sub(p.LastSeen) >= StaleAfter {
			continue
		}
		candidates = append(candidates, addr)
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if len(candidates) > 10 {
		candidates = candidates[:10]
	}
	return candidates
}

// CleanupStale drops entries that are disconnected and unseen for longer
// than StaleAfter.
func (t *Table) CleanupStale() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	kept := t.order[:0]
	for _, addr := range t.order {
		p := t.peers[addr]
		if p != nil && !p.Connected && now.Sub(p.LastSeen) >= StaleAfter {
			delete(t.peers, addr)
			continue
		}
		kept = append(kept, addr)
	}
	t.order = kept
}

// Len returns the number of known peers.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}
