package chain

import (
	"testing"

	vcrypto "github.com/validandis/node/internal/crypto"
)

func signedTx(t *testing.T, kp *vcrypto.KeyPair, to string, amount, nonce, fee uint64) Transaction {
	t.Helper()
	from := kp.Address()
	sig := kp.Sign(from, to, amount, nonce, fee)
	return Transaction{
		From:       from,
		FromPubKey: kp.PublicKeyHex(),
		To:         to,
		Amount:     amount,
		Nonce:      nonce,
		Fee:        fee,
		Signature:  sig,
	}
}

func TestAddBlockValidTransactionPath(t *testing.T) {
	kp, _ := vcrypto.Generate()
	alice := kp.Address()

	s := NewState(nil)
	s.CreditGenesis(alice, 1000)

	tx := signedTx(t, kp, "bob", 100, 0, 10)
	block := Block{
		Slot:         0,
		ParentHash:   GenesisParentHash,
		Producer:     "producer_1",
		Timestamp:    0,
		Transactions: []Transaction{tx},
	}

	if !s.AddBlock(block, 0) {
		t.Fatal("expected block to commit")
	}

	if got := s.GetBalance(alice); got != 890 {
		t.Fatalf("alice balance = %d, want 890", got)
	}
	if got := s.GetBalance("bob"); got != 100 {
		t.Fatalf("bob balance = %d, want 100", got)
	}
	if got := s.GetBalance("producer_1"); got < 10 {
		t.Fatalf("producer balance = %d, want at least the 10 fee", got)
	}
	if got := s.NextNonce(alice); got != 1 {
		t.Fatalf("alice nonce = %d, want 1", got)
	}
}

func TestAddBlockBadNonceRejectsWholeBlock(t *testing.T) {
	kp, _ := vcrypto.Generate()
	alice := kp.Address()

	s := NewState(nil)
	s.CreditGenesis(alice, 1000)

	tx := signedTx(t, kp, "bob", 100, 1, 10) // should be nonce 0
	block := Block{Slot: 0, ParentHash: GenesisParentHash, Producer: "p1", Transactions: []Transaction{tx}}

	if s.AddBlock(block, 0) {
		t.Fatal("expected block with bad nonce to be rejected")
	}
	if got := s.GetBalance(alice); got != 1000 {
		t.Fatalf("balance must be unchanged, got %d", got)
	}
	if _, ok := s.GetBlock(0); ok {
		t.Fatal("rejected block must not be recorded")
	}
}

func TestAddBlockSecondTxFailureLeavesStateUnchanged(t *testing.T) {
	kp, _ := vcrypto.Generate()
	alice := kp.Address()

	s := NewState(nil)
	s.CreditGenesis(alice, 150)

	tx1 := signedTx(t, kp, "bob", 100, 0, 0) // valid, leaves 50
	tx2 := signedTx(t, kp, "carol", 100, 1, 0) // needs 100 but only 50 left

	block := Block{Slot: 0, ParentHash: GenesisParentHash, Producer: "p1", Transactions: []Transaction{tx1, tx2}}

	if s.AddBlock(block, 0) {
		t.Fatal("expected block to be rejected")
	}
	if got := s.GetBalance(alice); got != 150 {
		t.Fatalf("alice balance must be untouched, got %d", got)
	}
	if got := s.GetBalance("bob"); got != 0 {
		t.Fatalf("bob must not have been credited, got %d", got)
	}
}

func TestAddBlockBoundaryAmountPlusFeeEqualsBalance(t *testing.T) {
	kp, _ := vcrypto.Generate()
	alice := kp.Address()

	s := NewState(nil)
	s.CreditGenesis(alice, 110)

	tx := signedTx(t, kp, "bob", 100, 0, 10) // amount+fee == balance exactly
	block := Block{Slot: 0, ParentHash: GenesisParentHash, Producer: "p1", Transactions: []Transaction{tx}}
	if !s.AddBlock(block, 0) {
		t.Fatal("amount+fee == balance should succeed")
	}
	if got := s.GetBalance(alice); got != 0 {
		t.Fatalf("alice should be drained to 0, got %d", got)
	}
}

func TestAddBlockBoundaryAmountPlusFeeExceedsBalance(t *testing.T) {
	kp, _ := vcrypto.Generate()
	alice := kp.Address()

	s := NewState(nil)
	s.CreditGenesis(alice, 109)

	tx := signedTx(t, kp, "bob", 100, 0, 10) // amount+fee == balance+1
	block := Block{Slot: 0, ParentHash: GenesisParentHash, Producer: "p1", Transactions: []Transaction{tx}}
	if s.AddBlock(block, 0) {
		t.Fatal("amount+fee == balance+1 should fail")
	}
}

func TestAddBlockTwiceCommitsOnce(t *testing.T) {
	s := NewState(nil)
	block := Block{Slot: 0, ParentHash: GenesisParentHash, Producer: "p1"}

	if !s.AddBlock(block, 0) {
		t.Fatal("first commit should succeed")
	}
	if s.AddBlock(block, 0) {
		t.Fatal("second commit of the same slot should be rejected")
	}
}

func TestAddBlockRejectsInvalidSignature(t *testing.T) {
	kp, _ := vcrypto.Generate()
	other, _ := vcrypto.Generate()
	alice := kp.Address()

	s := NewState(nil)
	s.CreditGenesis(alice, 1000)

	tx := signedTx(t, kp, "bob", 100, 0, 10)
	tx.FromPubKey = other.PublicKeyHex() // signature no longer matches claimed key

	block := Block{Slot: 0, ParentHash: GenesisParentHash, Producer: "p1", Transactions: []Transaction{tx}}
	if s.AddBlock(block, 0) {
		t.Fatal("block with mismatched signature must be rejected")
	}
}

func TestAddBlockDelegatedFeeRouting(t *testing.T) {
	kp, _ := vcrypto.Generate()
	alice := kp.Address()

	s := NewState(nil)
	s.CreditGenesis(alice, 1000)
	s.SetDelegate(alice, "delegate_validator")

	tx := signedTx(t, kp, "bob", 100, 0, 10)
	block := Block{Slot: 0, ParentHash: GenesisParentHash, Producer: "producer_1", Transactions: []Transaction{tx}}

	if !s.AddBlock(block, 0) {
		t.Fatal("expected block to commit")
	}
	if got := s.GetBalance("delegate_validator"); got != 10 {
		t.Fatalf("delegate should receive the fee, got %d", got)
	}
	if got := s.GetBalance("producer_1"); got == 10 {
		t.Fatal("producer should not have received the delegated fee")
	}
}

func TestGetBalanceUnknownAddressIsZero(t *testing.T) {
	s := NewState(nil)
	if got := s.GetBalance("nobody"); got != 0 {
		t.Fatalf("unknown address should be 0, got %d", got)
	}
}
