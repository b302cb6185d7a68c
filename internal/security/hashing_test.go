package security

import "testing"

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(4) // min cost for test speed
	digest, err := h.Hash([]byte("secret123"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "" || digest == "secret123" {
		t.Fatal("digest empty or equal to plaintext")
	}
	if !h.Verify(digest, []byte("secret123")) {
		t.Error("Verify should succeed for correct password")
	}
	if h.Verify(digest, []byte("wrong-password")) {
		t.Error("Verify should fail for wrong password")
	}
}

func TestHasher_HashIsSalted(t *testing.T) {
	h := NewHasher(4)
	d1, err := h.Hash([]byte("secret123"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	d2, err := h.Hash([]byte("secret123"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if d1 == d2 {
		t.Error("two hashes of the same password should differ (salt)")
	}
}

func TestHasher_VerifyMalformedDigest(t *testing.T) {
	h := NewHasher(4)
	// A digest in an unknown format is a mismatch, not a crash.
	if h.Verify("not-a-bcrypt-digest", []byte("secret123")) {
		t.Error("Verify should return false for malformed digest")
	}
	if h.Verify("", []byte("secret123")) {
		t.Error("Verify should return false for empty digest")
	}
}

func TestNewHasher_CostClamped(t *testing.T) {
	if h := NewHasher(0); h.Cost < 4 {
		t.Errorf("Cost = %d, want default", h.Cost)
	}
	if h := NewHasher(100); h.Cost > 31 {
		t.Errorf("Cost = %d, want clamped to max", h.Cost)
	}
}
