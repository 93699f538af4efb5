package friend

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/posn/crypto"
)

func TestStatusText(t *testing.T) {
	testCases := []struct {
		status Status
		text   string
	}{
		{StatusNone, "none"},
		{StatusAccepted, "accepted"},
		{StatusAwaitingConfirmation, "awaiting_confirmation"},
		{StatusBlocked, "blocked"},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			text, err := tc.status.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tc.text, string(text))
			assert.Equal(t, tc.text, tc.status.String())

			var decoded Status
			require.NoError(t, decoded.UnmarshalText(text))
			assert.Equal(t, tc.status, decoded)
		})
	}
}

func TestStatusInvalid(t *testing.T) {
	bad := Status(42)
	assert.False(t, bad.Valid())
	assert.Equal(t, "Status(42)", bad.String())

	_, err := bad.MarshalText()
	assert.ErrorIs(t, err, ErrInvalidStatus)

	var s Status
	assert.ErrorIs(t, s.UnmarshalText([]byte("best_friends")), ErrInvalidStatus)
}

func TestNewFriendValidation(t *testing.T) {
	key := crypto.SymmetricKey{9}

	testCases := []struct {
		name    string
		id      string
		status  Status
		key     crypto.SymmetricKey
		wantErr error
	}{
		{"valid", "alice", StatusAccepted, key, nil},
		{"empty id", "", StatusAccepted, key, ErrInvalidID},
		{"bad status", "alice", Status(9), key, ErrInvalidStatus},
		{"missing key", "alice", StatusAccepted, crypto.SymmetricKey{}, ErrMissingKey},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFriend(tc.id, "Alice", tc.status, tc.key, testAcceptedAt)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.id, f.ID)
			assert.Equal(t, crypto.Fingerprint(tc.key), f.Fingerprint())
		})
	}
}

func TestFriendJSONShape(t *testing.T) {
	f, err := NewFriend("alice", "Alice", StatusBlocked, crypto.SymmetricKey{1, 2, 3}, testAcceptedAt)
	require.NoError(t, err)
	assert.True(t, f.IsBlocked())

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "alice", fields["id"])
	assert.Equal(t, "Alice", fields["name"])
	assert.Equal(t, "blocked", fields["status"])
	assert.Equal(t, "AQIDAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=", fields["key"])
	assert.Equal(t, "2024-03-01T12:00:00Z", fields["accepted_at"])

	var decoded Friend
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, f.ID, decoded.ID)
	assert.Equal(t, f.Key, decoded.Key)
	assert.True(t, f.AcceptedAt.Equal(decoded.AcceptedAt))
}

func TestRequestedFriend(t *testing.T) {
	before := time.Now()
	r := NewRequestedFriend("bob", "Bob", "let's talk")
	assert.Equal(t, "bob", r.ID)
	assert.False(t, r.RequestedAt.Before(before))
	assert.NoError(t, r.Validate())

	assert.True(t, r.SameIdentity(RequestedFriend{ID: "bob", Name: "Robert"}))
	assert.False(t, r.SameIdentity(RequestedFriend{ID: "carol"}))

	assert.True(t, errors.Is(RequestedFriend{}.Validate(), ErrInvalidID))
}

func TestRequestedFriendJSONOmitsEmptyMessage(t *testing.T) {
	data, err := json.Marshal(RequestedFriend{ID: "bob", Name: "Bob", RequestedAt: testAcceptedAt})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"bob","name":"Bob","requested_at":"2024-03-01T12:00:00Z"}`, string(data))
}
