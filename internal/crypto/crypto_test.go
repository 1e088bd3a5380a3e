package crypto

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	from := kp.Address()
	sig := kp.Sign(from, "bob", 100, 0, 10)

	if !Verify(kp.PublicKeyHex(), from, "bob", 100, 0, 10, sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsMutatedFields(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	from := kp.Address()
	sig := kp.Sign(from, "bob", 100, 0, 10)

	cases := []struct {
		name               string
		to                 string
		amount, nonce, fee uint64
	}{
		{"amount", "bob", 101, 0, 10},
		{"nonce", "bob", 100, 1, 10},
		{"fee", "bob", 100, 0, 11},
		{"recipient", "carol", 100, 0, 10},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if Verify(kp.PublicKeyHex(), from, c.to, c.amount, c.nonce, c.fee, sig) {
				t.Fatalf("mutated field %s should not verify", c.name)
			}
		})
	}
}

func TestVerifyRejectsMalformedInputs(t *testing.T) {
	if Verify("not-hex", "a", "b", 1, 0, 0, "also-not-hex") {
		t.Fatal("malformed inputs must return false, not panic")
	}
	if Verify("ab", "a", "b", 1, 0, 0, "cd") {
		t.Fatal("too-short keys must return false")
	}
}

func TestAddressFromPublicKeyHex(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	addr, err := AddressFromPublicKeyHex(kp.PublicKeyHex())
	if err != nil {
		t.Fatalf("derive address: %v", err)
	}
	if addr != kp.Address() {
		t.Fatalf("address mismatch: %s != %s", addr, kp.Address())
	}

	if _, err := AddressFromPublicKeyHex("zz"); err == nil {
		t.Fatal("expected error for malformed hex")
	}
}
