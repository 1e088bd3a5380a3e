// Package node implements the per-node slot driver: the event loop that
// ties together consensus, chain state, mempool, transport, and TPI into
// block production (spec.md §4.G).
package node

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/validandis/node/internal/chain"
	"github.com/validandis/node/internal/consensus"
	"github.com/validandis/node/internal/dashboard"
	"github.com/validandis/node/internal/network"
	"github.com/validandis/node/internal/obsmetrics"
	"github.com/validandis/node/internal/peer"
	"github.com/validandis/node/internal/tpi"
)

// SlotDuration is the fixed cadence between slots (spec.md §4.F).
const SlotDuration = 10 * time.Second

// PeerSweepInterval is how often the driver cleans stale peers and dials
// new ones (spec.md §5).
const PeerSweepInterval = 30 * time.Second

const genesisAdoptWindow = 24 * time.Hour
const genesisFutureSlack = 5 * time.Minute

// maxTxsPerBlock bounds how many mempool transactions a single candidate
// block carries.
const maxTxsPerBlock = 500

// speedHistoryLen is how many recent block timestamps per producer are kept
// for racer speed ranking.
const speedHistoryLen = 20

// Driver runs one node's event loop: accept network events, drive the slot
// clock, invoke TPI, commit accepted blocks, and rebroadcast.
type Driver struct {
	ID       string
	Registry *consensus.Registry
	State    *chain.State
	Mempool  *chain.Mempool
	Peers    *peer.Table
	Listener *network.Listener

	// Board and Metrics feed the dashboard/RPC surface and Prometheus,
	// respectively. Both are nil-safe: a Driver built without them simply
	// skips recording.
	Board   *dashboard.Board
	Metrics *obsmetrics.Metrics

	GenesisMs int64

	currentSlot  uint64
	slotDeadline time.Time
	lastBlockAt  time.Time

	blockTimestamps map[string][]uint64 // producer -> recent block timestamps
}

// NewDriver constructs a Driver starting at slot 0 with a fresh slot
// deadline one SlotDuration from now.
func NewDriver(id string, registry *consensus.Registry, state *chain.State, mempool *chain.Mempool, peers *peer.Table, listener *network.Listener, genesisMs int64, board *dashboard.Board, metrics *obsmetrics.Metrics) *Driver {
	return &Driver{
		ID:              id,
		Registry:        registry,
		State:           state,
		Mempool:         mempool,
		Peers:           peers,
		Listener:        listener,
		Board:           board,
		Metrics:         metrics,
		GenesisMs:       genesisMs,
		slotDeadline:    time.Now().Add(SlotDuration),
		lastBlockAt:     time.Now(),
		blockTimestamps: make(map[string][]uint64),
	}
}

// Run drives the node until ctx is cancelled, selecting between inbound
// network messages, the slot deadline, and the periodic peer sweep.
func (d *Driver) Run(ctx context.Context) {
	peerTicker := time.NewTicker(PeerSweepInterval)
	defer peerTicker.Stop()

	for {
		remaining := time.Until(d.slotDeadline)
		if remaining < 0 {
			remaining = 0
		}
		deadlineTimer := time.NewTimer(remaining)

		select {
		case <-ctx.Done():
			deadlineTimer.Stop()
			return

		case inbound := <-d.Listener.Inbound:
			stopTimer(deadlineTimer)
			d.handleInbound(inbound)

		case <-deadlineTimer.C:
			d.runSlot()

		case <-peerTicker.C:
			stopTimer(deadlineTimer)
			d.sweepPeers()
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// runSlot executes the full Compute -> Collect -> Classify -> Decide ->
// Broadcast/Wait -> Racer flow for the current slot, then advances to the
// next one regardless of outcome.
func (d *Driver) runSlot() {
	slot := d.currentSlot
	validators := d.Registry.ActiveValidators()
	d.Registry.MaybeRotateEpoch()

	hashCh := make(chan tpi.HashResponse, network.InboundCap)
	stop := make(chan struct{})
	go d.relayTpiHashes(slot, hashCh, stop)
	defer close(stop)

	deps := tpi.Deps{
		ValidatorID:    d.ID,
		Validators:     validators,
		BuildCandidate: func() chain.Block { return d.buildCandidate(slot) },
		EmitHash: func(slot uint64, hash string) {
			network.Broadcast(network.NewTpiHash(slot, d.ID, hash, ""), d.Peers)
		},
		Hashes:    hashCh,
		Broadcast: d.commitAndBroadcast,
		GetBlock: func(s uint64) (chain.Block, bool) {
			b, ok := d.State.GetBlock(s)
			if !ok {
				return chain.Block{}, false
			}
			return *b, true
		},
		SpeedOf: d.speedOf,
	}

	result := tpi.RunSlot(slot, deps)
	if d.Metrics != nil {
		d.Metrics.TPIOutcomeTotal.WithLabelValues(result.Classification.Outcome.String()).Inc()
		if result.RacerFallback {
			d.Metrics.RacerFallbacks.Inc()
		}
		d.Metrics.MempoolSize.Set(float64(d.Mempool.Len()))
	}
	d.finishSlot(slot)
}

// relayTpiHashes forwards TpiHash network messages addressed to slot onto
// hashCh until stop fires. Messages for any other slot are discarded: TPI
// is strictly time-bounded per slot, so a stale or premature hash is no
// longer useful once its slot has moved on.
func (d *Driver) relayTpiHashes(slot uint64, hashCh chan<- tpi.HashResponse, stop <-chan struct{}) {
	for {
		select {
		case msg := <-d.Listener.TpiChan:
			if msg.Slot != slot {
				continue
			}
			select {
			case hashCh <- tpi.HashResponse{ValidatorID: msg.ValidatorID, BlockHash: msg.BlockHash}:
			default:
			}
		case <-stop:
			return
		}
	}
}

func (d *Driver) buildCandidate(slot uint64) chain.Block {
	parentHash := chain.GenesisParentHash
	if slot > 0 {
		if prev, ok := d.State.GetBlock(slot - 1); ok {
			parentHash = prev.Hash
		}
	}

	block := chain.Block{
		Slot:         slot,
		ParentHash:   parentHash,
		Producer:     d.ID,
		Timestamp:    uint64(d.GenesisMs) + slot*uint64(SlotDuration/time.Millisecond),
		Transactions: d.Mempool.GetPending(maxTxsPerBlock),
	}
	block.Hash = chain.ComputeHash(block)
	return block
}

// commitAndBroadcast applies a locally-produced block and, if accepted,
// gossips it to every connected peer.
func (d *Driver) commitAndBroadcast(b chain.Block) {
	if !d.State.AddBlock(b, d.Registry.CurrentEpoch()) {
		log.Warn().Uint64("slot", b.Slot).Msg("locally produced block rejected by own state")
		return
	}
	d.onCommitted(b)
	network.Broadcast(network.NewBlockMessage(b), d.Peers)
}

func (d *Driver) handleInbound(in network.Inbound) {
	msg := in.Message
	switch msg.Kind {
	case network.KindHandshake:
		d.negotiateGenesis(msg.GenesisTimestamp)
		for _, addr := range msg.KnownPeers {
			if addr != d.ID {
				d.Peers.Add(addr)
			}
		}
		if in.From != "" {
			d.Peers.Add(in.From)
			d.Peers.MarkConnected(in.From)
			if d.Board != nil {
				d.Board.AddPeer(dashboard.PeerMetric{
					PeerID:      in.From,
					Address:     in.From,
					ConnectedAt: uint64(time.Now().Unix()),
				})
			}
		}
	case network.KindNewBlock:
		if msg.Block == nil {
			return
		}
		if d.State.AddBlock(*msg.Block, d.Registry.CurrentEpoch()) {
			d.onCommitted(*msg.Block)
		}
	case network.KindPing:
		// no-op: presence is already recorded via UpdateSeen in the listener.
	}
}

// onCommitted resets the slot deadline (the network re-synchronizes around
// the actual block rate), advances currentSlot past the committed block,
// and records the producer's timing for racer speed ranking.
func (d *Driver) onCommitted(b chain.Block) {
	elapsedMs := uint64(time.Since(d.lastBlockAt).Milliseconds())
	d.lastBlockAt = time.Now()

	d.slotDeadline = time.Now().Add(SlotDuration)
	if b.Slot >= d.currentSlot {
		d.currentSlot = b.Slot + 1
	}

	hist := append(d.blockTimestamps[b.Producer], b.Timestamp)
	if len(hist) > speedHistoryLen {
		hist = hist[len(hist)-speedHistoryLen:]
	}
	d.blockTimestamps[b.Producer] = hist

	if d.Board != nil {
		d.Board.RecordBlock(dashboard.BlockMetric{
			Slot:      b.Slot,
			Hash:      b.Hash,
			Producer:  b.Producer,
			TxCount:   len(b.Transactions),
			TimeMs:    elapsedMs,
			Timestamp: b.Timestamp,
		})
		for _, tx := range b.Transactions {
			d.Board.RecordTransaction(dashboard.TxMetric{
				From:      tx.From,
				To:        tx.To,
				Amount:    tx.Amount,
				Hash:      tx.Signature,
				Timestamp: b.Timestamp,
			})
		}
		d.Board.SetMempoolSize(d.Mempool.Len())
	}
	if d.Metrics != nil {
		d.Metrics.CurrentSlot.Set(float64(b.Slot))
		d.Metrics.BlocksProduced.Inc()
		d.Metrics.MempoolSize.Set(float64(d.Mempool.Len()))
	}
}

// finishSlot ensures the driver always advances past slot and refreshes the
// deadline, whether or not a block for it was produced or adopted.
func (d *Driver) finishSlot(slot uint64) {
	if d.currentSlot <= slot {
		d.currentSlot = slot + 1
	}
	d.slotDeadline = time.Now().Add(SlotDuration)
}

func (d *Driver) speedOf(address string) uint64 {
	return tpi.CalculateSpeed(address, d.blockTimestamps[address])
}

// negotiateGenesis adopts a peer's genesis timestamp if it is earlier than
// ours, within the last 24h, and not more than 5 minutes in the future
// (spec.md §4.F).
func (d *Driver) negotiateGenesis(peerGenesisSeconds int64) {
	if peerGenesisSeconds <= 0 {
		return
	}
	peerGenesisMs := peerGenesisSeconds * 1000
	if peerGenesisMs >= d.GenesisMs {
		return
	}

	now := time.Now().UnixMilli()
	if now-peerGenesisMs > genesisAdoptWindow.Milliseconds() {
		return
	}
	if peerGenesisMs-now > genesisFutureSlack.Milliseconds() {
		return
	}

	d.GenesisMs = peerGenesisMs
	log.Info().Int64("genesis_ms", d.GenesisMs).Msg("adopted earlier peer genesis")
}

func (d *Driver) sweepPeers() {
	d.Peers.CleanupStale()

	if d.Board != nil {
		known := make(map[string]bool)
		for _, addr := range d.Peers.AllKnownPeers() {
			known[addr] = true
		}
		for _, p := range d.Board.Peers() {
			if !known[p.PeerID] {
				d.Board.RemovePeer(p.PeerID)
			}
		}
	}

	for _, addr := range d.Peers.PeersToConnect() {
		if err := d.Listener.Dial(addr, d.ID, d.GenesisMs/1000); err != nil {
			log.Warn().Err(err).Str("peer", addr).Msg("reconnect failed")
			continue
		}
		if d.Board != nil {
			d.Board.AddPeer(dashboard.PeerMetric{
				PeerID:      addr,
				Address:     addr,
				ConnectedAt: uint64(time.Now().Unix()),
			})
		}
	}

	if d.Metrics != nil {
		d.Metrics.ConnectedPeers.Set(float64(len(d.Peers.ConnectedPeers())))
	}
}
