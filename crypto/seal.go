package crypto

import (
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/opd-ai/posn/failure"
	"github.com/opd-ai/posn/limits"
)

// Nonce is a 24-byte value used for secretbox encryption.
type Nonce [limits.SealNonceSize]byte

// GenerateNonce creates a cryptographically secure random nonce.
func GenerateNonce() (Nonce, error) {
	var nonce Nonce
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return Nonce{}, failure.Crypto("generate nonce", err)
	}
	return nonce, nil
}

// Seal encrypts plaintext under key. The output is nonce || secretbox(plaintext).
func Seal(key SymmetricKey, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, failure.Crypto("seal", errors.New("empty message"))
	}
	if len(plaintext) > limits.MaxMessageContent {
		return nil, failure.Crypto("seal", limits.ValidateSize(plaintext, limits.MaxMessageContent))
	}
	if key.IsZero() {
		return nil, failure.Crypto("seal", ErrZeroKey)
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(nonce), len(nonce)+len(plaintext)+secretbox.Overhead)
	copy(out, nonce[:])
	return secretbox.Seal(out, plaintext, (*[24]byte)(&nonce), (*[32]byte)(&key)), nil
}

// Open decrypts and authenticates a payload produced by Seal.
func Open(key SymmetricKey, sealed []byte) ([]byte, error) {
	if err := limits.ValidateSealed(sealed); err != nil {
		return nil, failure.Crypto("open", err)
	}

	var nonce Nonce
	copy(nonce[:], sealed[:len(nonce)])

	out, ok := secretbox.Open(nil, sealed[len(nonce):], (*[24]byte)(&nonce), (*[32]byte)(&key))
	if !ok {
		return nil, failure.Crypto("open", errors.New("decryption failed: message authentication failed"))
	}
	return out, nil
}
