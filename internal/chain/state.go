package chain

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	vcrypto "github.com/validandis/node/internal/crypto"
	"github.com/validandis/node/internal/storage"
	"github.com/validandis/node/internal/tokenomics"
)

// Store is the subset of storage.Store the chain state needs. Defined here
// so State can be exercised with a nil store (memory-only) without the
// caller depending on the concrete storage package.
type Store interface {
	PutBlock(slot uint64, blockJSON []byte) error
	PutAccount(address string, balance uint64) error
	PutLatestSlot(slot uint64) error
}

var _ Store = (*storage.Store)(nil)

// State is the chain's account ledger, nonce table, and committed block
// index. Apart from the startup helpers CreditGenesis and SetDelegate, all
// mutation goes through AddBlock, which applies a block atomically: either
// every transaction in it lands, or none does.
type State struct {
	mu sync.RWMutex

	balances    map[string]uint64
	nonces      map[string]uint64
	blocks      map[uint64]*Block
	delegations map[string]string // sender -> delegated validator address

	latestSlot  uint64
	haveBlock   bool // distinguishes "no blocks yet" from latestSlot == 0
	totalSupply uint64

	store Store
}

// NewState creates an empty chain state. store may be nil for memory-only
// operation.
func NewState(store Store) *State {
	return &State{
		balances:    make(map[string]uint64),
		nonces:      make(map[string]uint64),
		blocks:      make(map[uint64]*Block),
		delegations: make(map[string]string),
		store:       store,
	}
}

// CreditGenesis sets an initial balance for an address. Only meant to be
// called once at startup, before any blocks are committed.
func (s *State) CreditGenesis(address string, balance uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[address] = balance
	s.totalSupply += balance
}

// SetDelegate registers that fees paid by sender should be credited to
// validator instead of the block's producer.
func (s *State) SetDelegate(sender, validator string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegations[sender] = validator
}

// GetBalance returns the balance of address, or 0 if unknown.
func (s *State) GetBalance(address string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[address]
}

// NextNonce returns the next expected nonce for address.
func (s *State) NextNonce(address string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonces[address]
}

// LatestSlot returns the highest committed slot.
func (s *State) LatestSlot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestSlot
}

// GetBlock returns the committed block for slot, if any.
func (s *State) GetBlock(slot uint64) (*Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[slot]
	return b, ok
}

// ledgerStage is the staging buffer AddBlock applies transactions into
// before committing. Applying directly to the live maps is unsafe: if a
// later transaction in the block fails, earlier mutations must not persist.
type ledgerStage struct {
	balances map[string]uint64
	nonces   map[string]uint64
}

func (s *State) newStage() *ledgerStage {
	return &ledgerStage{
		balances: make(map[string]uint64),
		nonces:   make(map[string]uint64),
	}
}

func (st *ledgerStage) balanceOf(s *State, addr string) uint64 {
	if v, ok := st.balances[addr]; ok {
		return v
	}
	return s.balances[addr]
}

func (st *ledgerStage) nonceOf(s *State, addr string) uint64 {
	if v, ok := st.nonces[addr]; ok {
		return v
	}
	return s.nonces[addr]
}

// AddBlock is the central state transition (spec.md §4.B). It:
//  1. rejects if the slot is already committed;
//  2. verifies and applies every transaction to a staging buffer, in order;
//  3. on any failure, discards the stage and rejects the whole block;
//  4. on success, commits the stage, mints the block reward (best-effort,
//     capped by the supply cap), and records the block.
func (s *State) AddBlock(block Block, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blocks[block.Slot]; exists {
		return false
	}

	stage := s.newStage()

	for _, tx := range block.Transactions {
		if !vcrypto.Verify(tx.FromPubKey, tx.From, tx.To, tx.Amount, tx.Nonce, tx.Fee, tx.Signature) {
			log.Debug().Str("from", tx.From).Msg("invalid transaction signature, rejecting block")
			return false
		}

		expectedNonce := stage.nonceOf(s, tx.From)
		if tx.Nonce != expectedNonce {
			log.Debug().Str("from", tx.From).Uint64("got", tx.Nonce).Uint64("want", expectedNonce).Msg("nonce mismatch, rejecting block")
			return false
		}

		total := tx.Amount + tx.Fee
		senderBalance := stage.balanceOf(s, tx.From)
		if senderBalance < total {
			log.Debug().Str("from", tx.From).Msg("insufficient balance, rejecting block")
			return false
		}

		stage.balances[tx.From] = senderBalance - total
		stage.balances[tx.To] = stage.balanceOf(s, tx.To) + tx.Amount

		feeRecipient := block.Producer
		if delegate, ok := s.delegations[tx.From]; ok && delegate != "" {
			feeRecipient = delegate
		}
		stage.balances[feeRecipient] = stage.balanceOf(s, feeRecipient) + tx.Fee

		stage.nonces[tx.From] = expectedNonce + 1
	}

	for addr, bal := range stage.balances {
		s.balances[addr] = bal
	}
	for addr, n := range stage.nonces {
		s.nonces[addr] = n
	}

	reward := tokenomics.ForEpoch(epoch).BlockReward
	if s.totalSupply+reward <= tokenomics.SupplyCap {
		s.balances[block.Producer] += reward
		s.totalSupply += reward
	}

	blockCopy := block
	s.blocks[block.Slot] = &blockCopy
	if !s.haveBlock || block.Slot > s.latestSlot {
		s.latestSlot = block.Slot
	}
	s.haveBlock = true

	s.persist(&blockCopy)

	return true
}

// persist writes the committed block and its touched accounts to the
// optional backing store. Persistence failures are logged, not fatal: the
// in-memory commit already happened and memory-only operation is a
// supported mode.
func (s *State) persist(block *Block) {
	if s.store == nil {
		return
	}

	data, err := json.Marshal(block)
	if err != nil {
		log.Error().Err(err).Uint64("slot", block.Slot).Msg("marshal block for persistence")
		return
	}
	if err := s.store.PutBlock(block.Slot, data); err != nil {
		log.Error().Err(err).Uint64("slot", block.Slot).Msg("persist block")
	}
	if err := s.store.PutLatestSlot(s.latestSlot); err != nil {
		log.Error().Err(err).Msg("persist latest slot")
	}

	touched := map[string]struct{}{block.Producer: {}}
	for _, tx := range block.Transactions {
		touched[tx.From] = struct{}{}
		touched[tx.To] = struct{}{}
	}
	for addr := range touched {
		if err := s.store.PutAccount(addr, s.balances[addr]); err != nil {
			log.Error().Err(err).Str("address", addr).Msg("persist account")
		}
	}
}

// SortedAddresses returns the keys of m in deterministic sorted order. Go's
// map iteration order is randomized by design; every selection that must
// agree across nodes (stake-weighted producer choice, TPI committee sort)
// sorts explicitly rather than relying on iteration order.
func SortedAddresses[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

