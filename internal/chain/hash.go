package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// ComputeHash returns the canonical, deterministic hash of a block: given
// the same content, any two honest producers must compute the same value
// (spec.md §4.F). It covers slot, parent hash, producer, timestamp, and, for
// each transaction, from, from_pubkey, to, amount, and signature. A
// transaction's nonce and fee are not hashed directly; they are bound
// through the signature, which is computed over them.
func ComputeHash(b Block) string {
	h := sha256.New()

	var buf8 [8]byte

	binary.LittleEndian.PutUint64(buf8[:], b.Slot)
	h.Write(buf8[:])
	h.Write([]byte(b.ParentHash))
	h.Write([]byte(b.Producer))
	binary.LittleEndian.PutUint64(buf8[:], b.Timestamp)
	h.Write(buf8[:])

	for _, tx := range b.Transactions {
		h.Write([]byte(tx.From))
		h.Write([]byte(tx.FromPubKey))
		h.Write([]byte(tx.To))
		binary.LittleEndian.PutUint64(buf8[:], tx.Amount)
		h.Write(buf8[:])
		h.Write([]byte(tx.Signature))
	}

	return hex.EncodeToString(h.Sum(nil))
}
