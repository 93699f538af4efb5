package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/posn/failure"
)

// KeySize is the length of a symmetric friend key in bytes.
const KeySize = 32

// SymmetricKey is the shared secret protecting one friend's conversation
// channel. Its text form is standard base64.
type SymmetricKey [KeySize]byte

// ErrZeroKey is returned when an all-zero key is decoded or issued.
var ErrZeroKey = errors.New("symmetric key is all zeros")

// IsZero reports whether every byte of the key is zero.
func (k SymmetricKey) IsZero() bool {
	return k == SymmetricKey{}
}

// MarshalText encodes the key as standard base64.
func (k SymmetricKey) MarshalText() ([]byte, error) {
	out := make([]byte, base64.StdEncoding.EncodedLen(KeySize))
	base64.StdEncoding.Encode(out, k[:])
	return out, nil
}

// UnmarshalText decodes a standard base64 key of exactly KeySize bytes.
func (k *SymmetricKey) UnmarshalText(text []byte) error {
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(decoded, text)
	if err != nil {
		return fmt.Errorf("invalid key encoding: %w", err)
	}
	defer ZeroBytes(decoded)

	if n != KeySize {
		return fmt.Errorf("invalid key length: got %d bytes, want %d", n, KeySize)
	}
	var key SymmetricKey
	copy(key[:], decoded[:n])
	if key.IsZero() {
		return ErrZeroKey
	}
	*k = key
	return nil
}

// String never reveals key bytes.
func (k SymmetricKey) String() string {
	return "SymmetricKey(" + Fingerprint(k) + ")"
}

// KeyFromBytes copies b into a SymmetricKey. b must be KeySize bytes and not
// all zeros.
func KeyFromBytes(b []byte) (SymmetricKey, error) {
	var key SymmetricKey
	if len(b) != KeySize {
		return key, fmt.Errorf("invalid key length: got %d bytes, want %d", len(b), KeySize)
	}
	copy(key[:], b)
	if key.IsZero() {
		return SymmetricKey{}, ErrZeroKey
	}
	return key, nil
}

// KeyIssuer produces fresh symmetric keys for newly trusted friends.
type KeyIssuer interface {
	IssueKey() (SymmetricKey, error)
}

// RandomKeyIssuer issues keys read from Reader. A nil Reader means
// crypto/rand.Reader.
type RandomKeyIssuer struct {
	Reader io.Reader
}

// IssueKey reads KeySize bytes from the issuer's random source. It fails with
// failure.ErrCrypto when the source errors or returns short.
func (r RandomKeyIssuer) IssueKey() (SymmetricKey, error) {
	logger := NewLogger("IssueKey")

	reader := r.Reader
	if reader == nil {
		reader = rand.Reader
	}

	var key SymmetricKey
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		logger.WithError(err, "random_source", "issue_key").Error("Random source unavailable")
		return SymmetricKey{}, failure.Crypto("issue key", err)
	}
	if key.IsZero() {
		logger.WithError(ErrZeroKey, "random_source", "issue_key").Error("Random source produced zero key")
		return SymmetricKey{}, failure.Crypto("issue key", ErrZeroKey)
	}

	logger.WithFields(logrus.Fields{"key_fingerprint": Fingerprint(key)}).Debug("Issued symmetric key")
	return key, nil
}

// IssueKey issues a key from crypto/rand.
func IssueKey() (SymmetricKey, error) {
	return RandomKeyIssuer{}.IssueKey()
}
