package crypto

import (
	"testing"
)

func TestSecureWipe(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	if err := SecureWipe(data); err != nil {
		t.Fatalf("SecureWipe failed: %v", err)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not wiped: %d", i, b)
		}
	}

	if err := SecureWipe(nil); err == nil {
		t.Error("SecureWipe(nil) should return an error")
	}
}

func TestWipeKey(t *testing.T) {
	key, err := IssueKey()
	if err != nil {
		t.Fatalf("Failed to issue key: %v", err)
	}

	if err := WipeKey(&key); err != nil {
		t.Fatalf("WipeKey failed: %v", err)
	}
	if !key.IsZero() {
		t.Fatal("Key data was not securely wiped by WipeKey")
	}

	if err := WipeKey(nil); err == nil {
		t.Error("WipeKey(nil) should return an error")
	}
}

func TestZeroBytesNil(t *testing.T) {
	// must not panic
	ZeroBytes(nil)
}
