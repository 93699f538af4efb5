package appfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/posn/crypto"
	"github.com/opd-ai/posn/failure"
	"github.com/opd-ai/posn/fileutil"
	"github.com/opd-ai/posn/friend"
	"github.com/opd-ai/posn/limits"
	"github.com/opd-ai/posn/task"
)

// DefaultFileName is the application file name used when Config leaves it
// empty.
const DefaultFileName = "friends.json"

const (
	friendsKey  = "friends"
	requestsKey = "requests"
)

var (
	// ErrNoDirectory is returned when Config has no directory.
	ErrNoDirectory = errors.New("application file directory is required")

	// ErrInvalidFileName is returned when the file name is not a plain base
	// name.
	ErrInvalidFileName = errors.New("application file name must not contain a path")

	// ErrNotEncrypted is returned by RotatePassphrase on a plain codec.
	ErrNotEncrypted = errors.New("application file is not encrypted")

	errMissingArray = errors.New("missing required array")
)

// Config identifies the application file and how it is protected.
type Config struct {
	// Dir is the directory holding the application file.
	Dir string
	// FileName is the file name inside Dir. Default: friends.json
	FileName string
	// Passphrase enables encryption at rest when non-empty.
	Passphrase []byte
	// Issuer issues keys for stores produced by Load and Deserialize.
	// Default: crypto.RandomKeyIssuer
	Issuer crypto.KeyIssuer
}

// Codec converts friend stores to and from the application file.
type Codec struct {
	dir      string
	fileName string
	issuer   crypto.KeyIssuer
	sealed   *crypto.EncryptedFileStore
}

// document is the on-disk envelope.
type document struct {
	Friends  []friend.Friend          `json:"friends"`
	Requests []friend.RequestedFriend `json:"requests"`
}

// New creates a codec for the file described by cfg.
func New(cfg Config) (*Codec, error) {
	if cfg.Dir == "" {
		return nil, ErrNoDirectory
	}
	name := cfg.FileName
	if name == "" {
		name = DefaultFileName
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}

	issuer := cfg.Issuer
	if issuer == nil {
		issuer = crypto.RandomKeyIssuer{}
	}

	c := &Codec{
		dir:      cfg.Dir,
		fileName: name,
		issuer:   issuer,
	}

	if len(cfg.Passphrase) > 0 {
		sealed, err := crypto.NewEncryptedFileStore(cfg.Dir, cfg.Passphrase)
		if err != nil {
			return nil, err
		}
		c.sealed = sealed
	}

	logrus.WithFields(logrus.Fields{
		"function":  "New",
		"path":      c.Path(),
		"encrypted": c.Encrypted(),
	}).Debug("Application file codec created")

	return c, nil
}

// Path returns the location of the application file.
func (c *Codec) Path() string {
	return filepath.Join(c.dir, c.fileName)
}

// Encrypted reports whether the file is sealed at rest.
func (c *Codec) Encrypted() bool {
	return c.sealed != nil
}

// Close wipes the at-rest encryption key, if any.
func (c *Codec) Close() error {
	if c.sealed != nil {
		return c.sealed.Close()
	}
	return nil
}

// Serialize encodes store as the application file document. Both arrays are
// always present. Friends are emitted in ID order, requests in pending order.
func (c *Codec) Serialize(store *friend.Store) ([]byte, error) {
	if store == nil {
		return nil, failure.Serialization("serialize friends", errors.New("nil friend store"))
	}

	doc := document{
		Friends:  store.Friends(),
		Requests: store.PendingRequests(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, failure.Serialization("serialize friends", err)
	}
	return data, nil
}

// Deserialize decodes an application file document into a new store.
func (c *Codec) Deserialize(data []byte) (*friend.Store, error) {
	if err := limits.ValidateDocument(data); err != nil {
		return nil, failure.Parse("deserialize friends", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, failure.Parse("deserialize friends", err)
	}

	rawFriends, err := requireArray(envelope, friendsKey)
	if err != nil {
		return nil, failure.Parse("deserialize friends", err)
	}
	rawRequests, err := requireArray(envelope, requestsKey)
	if err != nil {
		return nil, failure.Parse("deserialize friends", err)
	}

	friends := make([]friend.Friend, 0, len(rawFriends))
	for i, raw := range rawFriends {
		var f friend.Friend
		if err := decodeObject(raw, &f); err != nil {
			return nil, failure.Parse("deserialize friends", fmt.Errorf("%s[%d]: %w", friendsKey, i, err))
		}
		friends = append(friends, f)
	}

	requests := make([]friend.RequestedFriend, 0, len(rawRequests))
	for i, raw := range rawRequests {
		var r friend.RequestedFriend
		if err := decodeObject(raw, &r); err != nil {
			return nil, failure.Parse("deserialize friends", fmt.Errorf("%s[%d]: %w", requestsKey, i, err))
		}
		requests = append(requests, r)
	}

	store, err := friend.Restore(friends, requests, c.issuer)
	if err != nil {
		return nil, failure.Parse("deserialize friends", err)
	}
	return store, nil
}

// requireArray returns the elements of the JSON array stored under key.
func requireArray(envelope map[string]json.RawMessage, key string) ([]json.RawMessage, error) {
	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", errMissingArray, key)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%q must be an array", key)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%q: %w", key, err)
	}
	return elems, nil
}

// decodeObject decodes one entity, which must be a JSON object.
func decodeObject(raw json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("entity must be an object")
	}
	return json.Unmarshal(trimmed, v)
}

// Save serializes store and atomically replaces the application file. Nothing
// is written if serialization fails.
func (c *Codec) Save(store *friend.Store) error {
	data, err := c.Serialize(store)
	if err != nil {
		c.logFailure("Save", err)
		return err
	}
	if err := c.write(data); err != nil {
		c.logFailure("Save", err)
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Save",
		"path":     c.Path(),
		"friends":  store.Len(),
		"requests": store.PendingLen(),
	}).Info("Friend list saved")
	return nil
}

// SaveAsync serializes store on the calling goroutine, so the store is never
// read concurrently, and writes the file in the background.
func (c *Codec) SaveAsync(store *friend.Store, notifier task.Notifier) *task.Task {
	const label = "save friend list"

	data, err := c.Serialize(store)
	if err != nil {
		c.logFailure("SaveAsync", err)
		return task.Failed(label, notifier, err)
	}
	return task.Run(label, notifier, func() error {
		return c.write(data)
	})
}

func (c *Codec) write(data []byte) error {
	if c.sealed != nil {
		return c.sealed.WriteEncrypted(c.fileName, data)
	}
	if err := fileutil.WriteFileAtomic(c.Path(), data, fileutil.DefaultPerm); err != nil {
		return failure.IO("write application file", err)
	}
	return nil
}

// Load reads and decodes the application file. A missing file is a first run
// and yields an empty store.
func (c *Codec) Load() (*friend.Store, error) {
	data, err := c.read()
	if errors.Is(err, fs.ErrNotExist) {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"path":     c.Path(),
		}).Info("No application file yet, starting with an empty friend list")
		return friend.NewStore(c.issuer), nil
	}
	if err != nil {
		c.logFailure("Load", err)
		return nil, err
	}

	store, err := c.Deserialize(data)
	if err != nil {
		c.logFailure("Load", err)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     c.Path(),
		"friends":  store.Len(),
		"requests": store.PendingLen(),
	}).Info("Friend list loaded")
	return store, nil
}

func (c *Codec) read() ([]byte, error) {
	if c.sealed != nil {
		return c.sealed.ReadEncrypted(c.fileName)
	}
	data, err := os.ReadFile(c.Path())
	if err != nil {
		return nil, failure.IO("read application file", err)
	}
	return data, nil
}

// RotatePassphrase re-seals the application file under a new passphrase.
func (c *Codec) RotatePassphrase(newPassphrase []byte) error {
	if c.sealed == nil {
		return ErrNotEncrypted
	}
	return c.sealed.RotateKey(newPassphrase, c.fileName)
}

func (c *Codec) logFailure(function string, err error) {
	logrus.WithFields(logrus.Fields{
		"function": function,
		"path":     c.Path(),
		"kind":     failure.KindOf(err),
	}).WithError(err).Error("Application file operation failed")
}
