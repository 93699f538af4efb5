package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/posn/failure"
)

func TestRandomKeyIssuerIssuesNonZeroKeys(t *testing.T) {
	key, err := RandomKeyIssuer{}.IssueKey()
	require.NoError(t, err)
	assert.False(t, key.IsZero())
}

func TestIssueKeyUniqueness(t *testing.T) {
	seen := make(map[SymmetricKey]bool)
	for i := 0; i < 100; i++ {
		key, err := IssueKey()
		require.NoError(t, err)
		assert.False(t, seen[key], "key %d repeated", i)
		seen[key] = true
	}
}

func TestRandomKeyIssuerDeterministicReader(t *testing.T) {
	source := bytes.Repeat([]byte{0xAB}, KeySize)
	key, err := RandomKeyIssuer{Reader: bytes.NewReader(source)}.IssueKey()
	require.NoError(t, err)
	assert.Equal(t, source, key[:])
}

func TestRandomKeyIssuerFailures(t *testing.T) {
	testCases := []struct {
		name   string
		reader *failingReader
	}{
		{"read error", &failingReader{err: errors.New("entropy source offline")}},
		{"short read", &failingReader{data: []byte{1, 2, 3}}},
		{"all zero source", &failingReader{data: make([]byte, KeySize)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := RandomKeyIssuer{Reader: tc.reader}.IssueKey()
			assert.ErrorIs(t, err, failure.ErrCrypto)
			assert.True(t, key.IsZero(), "no key material on failure")
		})
	}
}

func TestSymmetricKeyTextRoundTrip(t *testing.T) {
	key, err := IssueKey()
	require.NoError(t, err)

	text, err := key.MarshalText()
	require.NoError(t, err)

	var decoded SymmetricKey
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, key, decoded)
}

func TestSymmetricKeyJSONField(t *testing.T) {
	key := SymmetricKey{1, 2, 3}
	data, err := json.Marshal(struct {
		Key SymmetricKey `json:"key"`
	}{key})
	require.NoError(t, err)
	assert.Equal(t, `{"key":"AQIDAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="}`, string(data))
}

func TestSymmetricKeyUnmarshalTextRejects(t *testing.T) {
	testCases := []struct {
		name string
		text string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", "AQID"},
		{"all zeros", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var key SymmetricKey
			assert.Error(t, key.UnmarshalText([]byte(tc.text)))
			assert.True(t, key.IsZero(), "key must be untouched on error")
		})
	}
}

func TestSymmetricKeyStringHidesMaterial(t *testing.T) {
	key := SymmetricKey{0xde, 0xad, 0xbe, 0xef}
	text, _ := key.MarshalText()

	s := key.String()
	assert.True(t, strings.HasPrefix(s, "SymmetricKey("))
	assert.NotContains(t, s, string(text))
	assert.NotContains(t, s, "deadbeef")
}

func TestKeyFromBytes(t *testing.T) {
	_, err := KeyFromBytes([]byte{1, 2})
	assert.Error(t, err)

	_, err = KeyFromBytes(make([]byte, KeySize))
	assert.ErrorIs(t, err, ErrZeroKey)

	raw := bytes.Repeat([]byte{7}, KeySize)
	key, err := KeyFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, key[:])
}

func TestFingerprint(t *testing.T) {
	a := SymmetricKey{1}
	b := SymmetricKey{2}

	assert.Len(t, Fingerprint(a), 2*fingerprintSize)
	assert.Equal(t, Fingerprint(a), Fingerprint(a))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.Equal(t, "none", Fingerprint(SymmetricKey{}))
}
