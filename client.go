package posn

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/posn/appfile"
	"github.com/opd-ai/posn/conversation"
	"github.com/opd-ai/posn/crypto"
	"github.com/opd-ai/posn/friend"
	"github.com/opd-ai/posn/task"
)

var (
	// ErrFriendNotFound is returned when an operation names an unknown friend.
	ErrFriendNotFound = errors.New("friend not found")

	// ErrRequestNotFound is returned when AcceptPending names an ID with no
	// pending request.
	ErrRequestNotFound = errors.New("friend request not found")

	// ErrFriendBlocked is returned when sealing for or opening from a blocked
	// friend.
	ErrFriendBlocked = errors.New("friend is blocked")
)

// Client owns one friend store and the file it is persisted to.
type Client struct {
	codec    *appfile.Codec
	store    *friend.Store
	exporter *conversation.Exporter
	notifier task.Notifier
}

// New creates a client and loads the friend list from options.DataDir. A
// missing friend list starts an empty one.
func New(options *Options) (*Client, error) {
	if options == nil {
		options = NewOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	passphrase, err := options.passphrase()
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(passphrase)

	codec, err := appfile.New(appfile.Config{
		Dir:        options.DataDir,
		FileName:   options.FriendListFile,
		Passphrase: passphrase,
		Issuer:     options.KeyIssuer,
	})
	if err != nil {
		return nil, err
	}

	store, err := codec.Load()
	if err != nil {
		codec.Close()
		return nil, err
	}

	notifier := options.Notifier
	if notifier == nil {
		notifier = task.NopNotifier{}
	}

	logrus.WithFields(logrus.Fields{
		"function":  "New",
		"path":      codec.Path(),
		"encrypted": codec.Encrypted(),
		"friends":   store.Len(),
		"requests":  store.PendingLen(),
	}).Info("Client ready")

	return &Client{
		codec:    codec,
		store:    store,
		exporter: conversation.NewExporter(),
		notifier: notifier,
	}, nil
}

// Close wipes key material held by the client. Unsaved changes are lost.
func (c *Client) Close() error {
	return c.codec.Close()
}

// Path returns the location of the friend list file.
func (c *Client) Path() string {
	return c.codec.Path()
}

// Store returns the underlying friend store. It shares the client's single
// writer.
func (c *Client) Store() *friend.Store {
	return c.store
}

// RequestFriend records an incoming friend request stamped with the current
// time.
func (c *Client) RequestFriend(id, name, message string) error {
	return c.store.AddPendingRequest(friend.NewRequestedFriend(id, name, message))
}

// AcceptFriend promotes request to a friend with a fresh key.
func (c *Client) AcceptFriend(request friend.RequestedFriend, status friend.Status) (friend.Friend, error) {
	return c.store.AcceptFriend(request, status)
}

// AcceptPending accepts the pending request with the given ID.
func (c *Client) AcceptPending(id string, status friend.Status) (friend.Friend, error) {
	request, ok := c.store.PendingRequest(id)
	if !ok {
		return friend.Friend{}, fmt.Errorf("%w: %q", ErrRequestNotFound, id)
	}
	return c.store.AcceptFriend(request, status)
}

// RejectRequest drops a pending request.
func (c *Client) RejectRequest(id string) bool {
	return c.store.RejectRequest(id)
}

// GetFriend returns the accepted friend with the given ID.
func (c *Client) GetFriend(id string) (friend.Friend, bool) {
	return c.store.GetFriend(id)
}

// UpdateFriend replaces the stored friend with f.
func (c *Client) UpdateFriend(f friend.Friend) error {
	return c.store.UpdateFriend(f)
}

// SetFriendStatus changes the relationship status of an accepted friend.
func (c *Client) SetFriendStatus(id string, status friend.Status) error {
	f, ok := c.store.GetFriend(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrFriendNotFound, id)
	}
	f.Status = status
	return c.store.UpdateFriend(f)
}

// RemoveFriend deletes an accepted friend.
func (c *Client) RemoveFriend(id string) bool {
	return c.store.RemoveFriend(id)
}

// Friends returns accepted friends sorted by ID.
func (c *Client) Friends() []friend.Friend {
	return c.store.Friends()
}

// PendingRequests returns pending requests in arrival order.
func (c *Client) PendingRequests() []friend.RequestedFriend {
	return c.store.PendingRequests()
}

// sealingKey returns the key of a friend that may exchange messages.
func (c *Client) sealingKey(id string) (crypto.SymmetricKey, error) {
	f, ok := c.store.GetFriend(id)
	if !ok {
		return crypto.SymmetricKey{}, fmt.Errorf("%w: %q", ErrFriendNotFound, id)
	}
	if f.IsBlocked() {
		return crypto.SymmetricKey{}, fmt.Errorf("%w: %q", ErrFriendBlocked, id)
	}
	return f.Key, nil
}

// SealFor encrypts plaintext for the conversation channel with friend id.
func (c *Client) SealFor(id string, plaintext []byte) ([]byte, error) {
	key, err := c.sealingKey(id)
	if err != nil {
		return nil, err
	}
	return crypto.Seal(key, plaintext)
}

// OpenFrom decrypts a payload sealed for the conversation channel with
// friend id.
func (c *Client) OpenFrom(id string, sealed []byte) ([]byte, error) {
	key, err := c.sealingKey(id)
	if err != nil {
		return nil, err
	}
	return crypto.Open(key, sealed)
}

// Save writes the friend list file.
func (c *Client) Save() error {
	return c.codec.Save(c.store)
}

// SaveAsync snapshots the friend list and writes it in the background.
func (c *Client) SaveAsync() *task.Task {
	return c.codec.SaveAsync(c.store, c.notifier)
}

// ExportConversations writes threads to path.
func (c *Client) ExportConversations(threads conversation.Threads, path string) error {
	return c.exporter.Export(threads, path)
}

// ExportConversationsAsync snapshots threads and writes them to path in the
// background.
func (c *Client) ExportConversationsAsync(threads conversation.Threads, path string) *task.Task {
	return c.exporter.ExportAsync(threads, path, c.notifier)
}

// ChangePassphrase re-encrypts the friend list under a new passphrase. It
// fails with appfile.ErrNotEncrypted when encryption at rest is off.
func (c *Client) ChangePassphrase(newPassphrase []byte) error {
	if err := c.codec.RotatePassphrase(newPassphrase); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function": "ChangePassphrase",
		"path":     c.codec.Path(),
	}).Info("Friend list passphrase changed")
	return nil
}
