// Package dashboard holds the bounded in-memory history feeds behind the
// node's /status, /blocks, /transactions, /logs, and /ws RPC endpoints.
// Grounded in the original node's metrics collector: fixed-capacity
// ring buffers rather than unbounded growth.
package dashboard

import (
	"sync"
	"time"
)

// Capacities mirror the original metrics collector's history limits.
const (
	MaxBlockHistory = 100
	MaxTxHistory    = 50
	MaxLogEntries   = 500
)

// BlockMetric is one entry in the recent-blocks feed.
type BlockMetric struct {
	Slot      uint64 `json:"slot"`
	Hash      string `json:"hash"`
	Producer  string `json:"producer"`
	TxCount   int    `json:"tx_count"`
	TimeMs    uint64 `json:"time_ms"`
	Timestamp uint64 `json:"timestamp"`
}

// TxMetric is one entry in the recent-transactions feed.
type TxMetric struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	Hash      string `json:"hash"`
	Timestamp uint64 `json:"timestamp"`
}

// PeerMetric is one entry in the connected-peers feed.
type PeerMetric struct {
	PeerID      string `json:"peer_id"`
	Address     string `json:"address"`
	LatencyMs   uint64 `json:"latency_ms"`
	ConnectedAt uint64 `json:"connected_at"`
}

// LogEntry is one entry in the recent-log-lines feed.
type LogEntry struct {
	Timestamp uint64 `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Status summarizes the node's live operating state for the /status and
// /ws endpoints.
type Status struct {
	CurrentSlot    uint64 `json:"current_slot"`
	BlocksProduced uint64 `json:"blocks_produced"`
	MempoolSize    int    `json:"mempool_size"`
	ConnectedPeers int    `json:"connected_peers"`
	UptimeSeconds  uint64 `json:"uptime_seconds"`
	AvgBlockTimeMs uint64 `json:"avg_block_time"`
	CurrentTPS     uint64 `json:"current_tps"`
	AvgTPS         uint64 `json:"avg_tps"`
}

// Board is the bounded collection of feeds a running node maintains for
// observability, independent of the Prometheus gauges in
// internal/obsmetrics.
type Board struct {
	mu sync.Mutex

	blocks       []BlockMetric
	transactions []TxMetric
	peers        []PeerMetric
	logs         []LogEntry

	startTime      time.Time
	blocksProduced uint64
	currentSlot    uint64
	mempoolSize    int

	totalBlockTimeMs uint64
	blockCount       uint64
}

// New creates an empty Board with its uptime clock starting now.
func New() *Board {
	return &Board{startTime: time.Now()}
}

// RecordBlock appends a block to the history feed, evicting the oldest
// entry once MaxBlockHistory is exceeded.
func (b *Board) RecordBlock(m BlockMetric) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.blocksProduced++
	b.currentSlot = m.Slot
	b.totalBlockTimeMs += m.TimeMs
	b.blockCount++

	b.blocks = append(b.blocks, m)
	if len(b.blocks) > MaxBlockHistory {
		b.blocks = b.blocks[len(b.blocks)-MaxBlockHistory:]
	}
}

// RecordTransaction appends a transaction to the history feed, evicting the
// oldest entry once MaxTxHistory is exceeded.
func (b *Board) RecordTransaction(m TxMetric) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transactions = append(b.transactions, m)
	if len(b.transactions) > MaxTxHistory {
		b.transactions = b.transactions[len(b.transactions)-MaxTxHistory:]
	}
}

// AddPeer records a connected peer, ignoring duplicates by peer id.
func (b *Board) AddPeer(p PeerMetric) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.peers {
		if existing.PeerID == p.PeerID {
			return
		}
	}
	b.peers = append(b.peers, p)
}

// RemovePeer drops a peer by id.
func (b *Board) RemovePeer(peerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.peers[:0]
	for _, p := range b.peers {
		if p.PeerID != peerID {
			out = append(out, p)
		}
	}
	b.peers = out
}

// AddLog appends a log line to the history feed, evicting the oldest entry
// once MaxLogEntries is exceeded.
func (b *Board) AddLog(level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logs = append(b.logs, LogEntry{
		Timestamp: uint64(time.Now().Unix()),
		Level:     level,
		Message:   message,
	})
	if len(b.logs) > MaxLogEntries {
		b.logs = b.logs[len(b.logs)-MaxLogEntries:]
	}
}

// SetMempoolSize records the mempool's current pending-transaction count.
func (b *Board) SetMempoolSize(size int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mempoolSize = size
}

// Status computes the current snapshot for /status and /ws.
func (b *Board) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	avgBlockTime := uint64(10000)
	if b.blockCount > 0 {
		avgBlockTime = b.totalBlockTimeMs / b.blockCount
	}

	var currentTPS uint64
	if len(b.blocks) > 0 {
		recent := b.blocks[len(b.blocks)-1]
		if recent.TimeMs > 0 {
			currentTPS = uint64(float64(recent.TxCount) / (float64(recent.TimeMs) / 1000.0))
		}
	}

	var avgTPS uint64
	if b.blockCount > 0 && b.totalBlockTimeMs > 0 {
		var totalTxs int
		for _, blk := range b.blocks {
			totalTxs += blk.TxCount
		}
		avgTPS = uint64((float64(totalTxs) / (float64(b.totalBlockTimeMs) / 1000.0)) * 1000.0)
	}

	return Status{
		CurrentSlot:    b.currentSlot,
		BlocksProduced: b.blocksProduced,
		MempoolSize:    b.mempoolSize,
		ConnectedPeers: len(b.peers),
		UptimeSeconds:  uint64(time.Since(b.startTime).Seconds()),
		AvgBlockTimeMs: avgBlockTime,
		CurrentTPS:     currentTPS,
		AvgTPS:         avgTPS,
	}
}

// Blocks returns a copy of the current block-history feed.
func (b *Board) Blocks() []BlockMetric {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BlockMetric, len(b.blocks))
	copy(out, b.blocks)
	return out
}

// Transactions returns a copy of the current transaction-history feed.
func (b *Board) Transactions() []TxMetric {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TxMetric, len(b.transactions))
	copy(out, b.transactions)
	return out
}

// Peers returns a copy of the current connected-peers feed.
func (b *Board) Peers() []PeerMetric {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PeerMetric, len(b.peers))
	copy(out, b.peers)
	return out
}

// Logs returns a copy of the current log-history feed.
func (b *Board) Logs() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]LogEntry, len(b.logs))
	copy(out, b.logs)
	return out
}
