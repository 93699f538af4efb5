package posn

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/posn/appfile"
	"github.com/opd-ai/posn/conversation"
	"github.com/opd-ai/posn/failure"
	"github.com/opd-ai/posn/friend"
)

func TestClientRequestAcceptSaveReload(t *testing.T) {
	options := testOptions(t)
	client := newTestClient(t, options)

	require.NoError(t, client.RequestFriend("alice", "Alice", "hi"))
	require.NoError(t, client.RequestFriend("bob", "Bob", ""))

	f, err := client.AcceptPending("alice", friend.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, "Alice", f.Name)
	assert.False(t, f.Key.IsZero())
	require.NoError(t, client.Save())

	reloaded := newTestClient(t, options)
	got, ok := reloaded.GetFriend("alice")
	require.True(t, ok)
	assert.Equal(t, f.Key, got.Key)

	pending := reloaded.PendingRequests()
	require.Len(t, pending, 1)
	assert.Equal(t, "bob", pending[0].ID)
}

func TestClientAcceptPendingUnknown(t *testing.T) {
	client := newTestClient(t, testOptions(t))

	_, err := client.AcceptPending("nobody", friend.StatusAccepted)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestClientAcceptFriendWithoutRequest(t *testing.T) {
	client := newTestClient(t, testOptions(t))

	f, err := client.AcceptFriend(friend.RequestedFriend{ID: "carol", Name: "Carol"}, friend.StatusAwaitingConfirmation)
	require.NoError(t, err)
	assert.Equal(t, friend.StatusAwaitingConfirmation, f.Status)
	assert.Len(t, client.Friends(), 1)
}

func TestClientSetFriendStatusAndRemove(t *testing.T) {
	client := newTestClient(t, testOptions(t))
	_, err := client.AcceptFriend(friend.RequestedFriend{ID: "alice"}, friend.StatusAccepted)
	require.NoError(t, err)

	require.NoError(t, client.SetFriendStatus("alice", friend.StatusBlocked))
	f, _ := client.GetFriend("alice")
	assert.True(t, f.IsBlocked())

	assert.ErrorIs(t, client.SetFriendStatus("bob", friend.StatusBlocked), ErrFriendNotFound)

	assert.True(t, client.RemoveFriend("alice"))
	assert.Empty(t, client.Friends())
}

func TestClientSealOpen(t *testing.T) {
	client := newTestClient(t, testOptions(t))
	_, err := client.AcceptFriend(friend.RequestedFriend{ID: "alice"}, friend.StatusAccepted)
	require.NoError(t, err)
	_, err = client.AcceptFriend(friend.RequestedFriend{ID: "bob"}, friend.StatusAccepted)
	require.NoError(t, err)

	sealed, err := client.SealFor("alice", []byte("meet at noon"))
	require.NoError(t, err)

	opened, err := client.OpenFrom("alice", sealed)
	require.NoError(t, err)
	assert.Equal(t, "meet at noon", string(opened))

	_, err = client.OpenFrom("bob", sealed)
	assert.ErrorIs(t, err, failure.ErrCrypto, "another friend's key must not open the payload")

	_, err = client.SealFor("mallory", []byte("x"))
	assert.ErrorIs(t, err, ErrFriendNotFound)

	require.NoError(t, client.SetFriendStatus("alice", friend.StatusBlocked))
	_, err = client.SealFor("alice", []byte("x"))
	assert.ErrorIs(t, err, ErrFriendBlocked)
}

func TestClientRejectRequest(t *testing.T) {
	client := newTestClient(t, testOptions(t))
	require.NoError(t, client.RequestFriend("alice", "Alice", ""))

	assert.True(t, client.RejectRequest("alice"))
	assert.Empty(t, client.PendingRequests())
	assert.ErrorIs(t, client.RequestFriend("", "nobody", ""), friend.ErrInvalidID)
}

func TestClientSaveAsync(t *testing.T) {
	options := testOptions(t)
	notifier := &recordingNotifier{}
	options.Notifier = notifier
	client := newTestClient(t, options)

	require.NoError(t, client.RequestFriend("alice", "Alice", ""))

	ctx, cancel := context.WithTimeout(context.Background(), testAsyncTimeout)
	defer cancel()
	require.NoError(t, client.SaveAsync().Wait(ctx))
	assert.Equal(t, []string{"save friend list"}, notifier.labels())

	reloaded := newTestClient(t, options)
	assert.Len(t, reloaded.PendingRequests(), 1)
}

func TestClientExportConversations(t *testing.T) {
	client := newTestClient(t, testOptions(t))
	path := filepath.Join(t.TempDir(), "export.json")
	threads := conversation.Threads{
		"t1": {
			conversation.NewMessage("t1", "alice", "hello", conversation.MessageTypeNormal),
			conversation.NewMessage("t1", "me", "waves", conversation.MessageTypeAction),
		},
	}

	require.NoError(t, client.ExportConversations(threads, path))
	imported, err := conversation.Import(path)
	require.NoError(t, err)
	require.Len(t, imported["t1"], 2)
	assert.Equal(t, "hello", imported["t1"][0].Content)

	asyncPath := filepath.Join(t.TempDir(), "async.json")
	ctx, cancel := context.WithTimeout(context.Background(), testAsyncTimeout)
	defer cancel()
	require.NoError(t, client.ExportConversationsAsync(threads, asyncPath).Wait(ctx))
	_, err = os.Stat(asyncPath)
	assert.NoError(t, err)
}

func TestClientEncryptedAtRest(t *testing.T) {
	options := testOptions(t)
	options.PassphraseEnv = testPassphraseEnv
	t.Setenv(testPassphraseEnv, "first passphrase")

	client := newTestClient(t, options)
	_, err := client.AcceptFriend(friend.RequestedFriend{ID: "alice", Name: "Alice"}, friend.StatusAccepted)
	require.NoError(t, err)
	require.NoError(t, client.Save())

	raw, err := os.ReadFile(client.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Alice")

	require.NoError(t, client.ChangePassphrase([]byte("second passphrase")))

	_, err = New(options)
	assert.ErrorIs(t, err, failure.ErrCrypto, "old passphrase no longer opens the file")

	t.Setenv(testPassphraseEnv, "second passphrase")
	reloaded := newTestClient(t, options)
	_, ok := reloaded.GetFriend("alice")
	assert.True(t, ok)
}

func TestClientConfigurationErrors(t *testing.T) {
	options := testOptions(t)
	options.PassphraseEnv = testPassphraseEnv
	t.Setenv(testPassphraseEnv, "")
	_, err := New(options)
	assert.ErrorIs(t, err, ErrMissingPassphrase)

	options = testOptions(t)
	options.DataDir = ""
	_, err = New(options)
	assert.ErrorIs(t, err, appfile.ErrNoDirectory)

	plain := newTestClient(t, testOptions(t))
	assert.ErrorIs(t, plain.ChangePassphrase([]byte("x")), appfile.ErrNotEncrypted)
}

func TestClientLoadCorruptFile(t *testing.T) {
	options := testOptions(t)
	path := filepath.Join(options.DataDir, options.FriendListFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"requests":[]}`), 0o600))

	_, err := New(options)
	assert.ErrorIs(t, err, failure.ErrParse)
}
