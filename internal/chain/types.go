// Package chain implements chain state, block application, and the
// mempool: the in-memory account ledger and its transitions.
package chain

// Transaction is a signed transfer from one address to another.
type Transaction struct {
	From       string `json:"from"`
	FromPubKey string `json:"from_pubkey"`
	To         string `json:"to"`
	Amount     uint64 `json:"amount"`
	Nonce      uint64 `json:"nonce"`
	Fee        uint64 `json:"fee"`
	Signature  string `json:"signature"`
}

// Block is an ordered batch of transactions committed at a single slot.
type Block struct {
	Slot         uint64        `json:"slot"`
	ParentHash   string        `json:"parent_hash"`
	Hash         string        `json:"hash"`
	Producer     string        `json:"producer"`
	Timestamp    uint64        `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// GenesisParentHash is the literal parent hash of slot 0.
const GenesisParentHash = "genesis"
