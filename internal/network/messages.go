// Package network implements the length-framed, size-capped,
// timeout-bounded TCP transport: message framing, the accept loop, the
// dialer, and best-effort gossip broadcast.
package network

import "github.com/validandis/node/internal/chain"

// Kind tags the variant carried by a Message.
type Kind string

const (
	KindHandshake Kind = "Handshake"
	KindNewBlock  Kind = "NewBlock"
	KindPing      Kind = "Ping"
	KindTpiHash   Kind = "TpiHash"
)

// Message is the tagged union carried over the wire. Exactly one of the
// Handshake*/Block/TpiHash* fields is populated according to Kind.
type Message struct {
	Kind Kind `json:"kind"`

	// Handshake fields.
	PeerAddr         string   `json:"peer_addr,omitempty"`
	KnownPeers       []string `json:"known_peers,omitempty"`
	GenesisTimestamp int64    `json:"genesis_timestamp,omitempty"`

	// NewBlock field.
	Block *chain.Block `json:"block,omitempty"`

	// TpiHash fields.
	Slot        uint64 `json:"slot,omitempty"`
	ValidatorID string `json:"validator_id,omitempty"`
	BlockHash   string `json:"block_hash,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

// NewHandshake builds a Handshake message.
func NewHandshake(peerAddr string, knownPeers []string, genesisTimestamp int64) Message {
	return Message{
		Kind:             KindHandshake,
		PeerAddr:         peerAddr,
		KnownPeers:       knownPeers,
		GenesisTimestamp: genesisTimestamp,
	}
}

// NewBlockMessage wraps a block for gossip.
func NewBlockMessage(b chain.Block) Message {
	return Message{Kind: KindNewBlock, Block: &b}
}

// NewPing builds a Ping message.
func NewPing() Message {
	return Message{Kind: KindPing}
}

// NewTpiHash builds a TpiHash message.
func NewTpiHash(slot uint64, validatorID, blockHash, signature string) Message {
	return Message{
		Kind:        KindTpiHash,
		Slot:        slot,
		ValidatorID: validatorID,
		BlockHash:   blockHash,
		Signature:   signature,
	}
}

// Inbound pairs a decoded message with the peer address it arrived from.
type Inbound struct {
	Message Message
	From    string
}
