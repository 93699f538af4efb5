package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/opd-ai/posn/failure"
	"github.com/opd-ai/posn/fileutil"
)

// EncryptedFileStore seals files in one directory with AES-256-GCM under a
// key derived from a passphrase.
//
// Key rotation journals the new salt in PendingSaltFileName before any file is
// rewritten. When a store is opened while that file exists, the key derived
// from it is kept as a fallback for reads, so files sealed by an interrupted
// rotation remain readable under the passphrase they were sealed with.
type EncryptedFileStore struct {
	encryptionKey [32]byte
	pendingKey    [32]byte
	hasPending    bool
	dataDir       string
	saltFile      string
}

const (
	// PBKDF2Iterations is the number of iterations for key derivation (NIST recommendation)
	PBKDF2Iterations = 100000
	// EncryptionVersion is the current encryption format version
	EncryptionVersion = 1
	// SaltSize is the size of the salt for PBKDF2
	SaltSize = 32
	// SaltFileName is the per-directory salt file.
	SaltFileName = ".salt"
	// PendingSaltFileName holds the salt of a key rotation in progress.
	PendingSaltFileName = ".salt.new"

	headerSize = 2
	gcmNonce   = 12
	gcmTag     = 16
)

// ErrEmptyPassphrase is returned when an encrypted store is opened without a
// passphrase.
var ErrEmptyPassphrase = errors.New("passphrase cannot be empty")

// NewEncryptedFileStore opens (or initializes) an encrypted store in dataDir.
// The passphrase is not retained; only the derived key is kept until Close.
func NewEncryptedFileStore(dataDir string, passphrase []byte) (*EncryptedFileStore, error) {
	if len(passphrase) == 0 {
		return nil, failure.Crypto("open encrypted store", ErrEmptyPassphrase)
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, failure.IO("open encrypted store", fmt.Errorf("failed to create data directory: %w", err))
	}

	ks := &EncryptedFileStore{
		dataDir:  dataDir,
		saltFile: filepath.Join(dataDir, SaltFileName),
	}

	salt, err := ks.loadOrGenerateSalt()
	if err != nil {
		return nil, err
	}

	ks.encryptionKey = deriveKey(passphrase, salt)

	if pending, ok := ks.loadPendingSalt(); ok {
		ks.pendingKey = deriveKey(passphrase, pending)
		ks.hasPending = true
		NewLogger("NewEncryptedFileStore").WithField("data_dir", dataDir).Warn("Interrupted key rotation found, keeping its key for reads")
	}

	NewLogger("NewEncryptedFileStore").WithField("data_dir", dataDir).Debug("Encrypted file store opened")
	return ks, nil
}

func deriveKey(passphrase, salt []byte) [32]byte {
	var key [32]byte
	derived := pbkdf2.Key(passphrase, salt, PBKDF2Iterations, 32, sha256.New)
	copy(key[:], derived)
	ZeroBytes(derived)
	return key
}

func (ks *EncryptedFileStore) pendingSaltFile() string {
	return filepath.Join(ks.dataDir, PendingSaltFileName)
}

// loadPendingSalt returns the journaled rotation salt, if a well-formed one
// exists.
func (ks *EncryptedFileStore) loadPendingSalt() ([]byte, bool) {
	data, err := os.ReadFile(ks.pendingSaltFile())
	if err != nil {
		return nil, false
	}
	if len(data) != SaltSize {
		NewLogger("loadPendingSalt").WithField("size", len(data)).Warn("Ignoring malformed pending salt file")
		return nil, false
	}
	return data, true
}

func (ks *EncryptedFileStore) loadOrGenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)

	data, err := os.ReadFile(ks.saltFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, failure.IO("load salt", err)
		}

		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, failure.Crypto("generate salt", err)
		}
		if err := fileutil.WriteFileAtomic(ks.saltFile, salt, fileutil.DefaultPerm); err != nil {
			return nil, failure.IO("save salt", err)
		}
		return salt, nil
	}

	if len(data) != SaltSize {
		return nil, failure.Parse("load salt", fmt.Errorf("invalid salt file size: got %d, want %d", len(data), SaltSize))
	}

	copy(salt, data)
	return salt, nil
}

// Path returns the on-disk location of filename inside the store.
func (ks *EncryptedFileStore) Path(filename string) string {
	return filepath.Join(ks.dataDir, filename)
}

func newGCM(key *[32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// WriteEncrypted encrypts plaintext and atomically replaces filename.
// Format: [version:2][nonce:12][ciphertext+tag:N]
func (ks *EncryptedFileStore) WriteEncrypted(filename string, plaintext []byte) error {
	gcm, err := newGCM(&ks.encryptionKey)
	if err != nil {
		return failure.Crypto("write encrypted", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return failure.Crypto("write encrypted", fmt.Errorf("failed to generate nonce: %w", err))
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	output := make([]byte, headerSize+len(nonce)+len(ciphertext))
	binary.BigEndian.PutUint16(output[0:headerSize], EncryptionVersion)
	copy(output[headerSize:headerSize+len(nonce)], nonce)
	copy(output[headerSize+len(nonce):], ciphertext)

	if err := fileutil.WriteFileAtomic(ks.Path(filename), output, fileutil.DefaultPerm); err != nil {
		return failure.IO("write encrypted", err)
	}
	return nil
}

// ReadEncrypted reads and decrypts filename. A missing file yields an ErrIO
// failure that also matches os.ErrNotExist.
func (ks *EncryptedFileStore) ReadEncrypted(filename string) ([]byte, error) {
	data, err := os.ReadFile(ks.Path(filename))
	if err != nil {
		return nil, failure.IO("read encrypted", err)
	}

	if len(data) < headerSize+gcmNonce+gcmTag {
		return nil, failure.Parse("read encrypted", fmt.Errorf("file too short: %d bytes (minimum %d bytes)", len(data), headerSize+gcmNonce+gcmTag))
	}

	version := binary.BigEndian.Uint16(data[0:headerSize])
	if version != EncryptionVersion {
		return nil, failure.Parse("read encrypted", fmt.Errorf("unsupported encryption version: %d (expected %d)", version, EncryptionVersion))
	}

	nonce := data[headerSize : headerSize+gcmNonce]
	ciphertext := data[headerSize+gcmNonce:]

	plaintext, err := openSealed(&ks.encryptionKey, nonce, ciphertext)
	if err != nil && ks.hasPending {
		plaintext, err = openSealed(&ks.pendingKey, nonce, ciphertext)
	}
	if err != nil {
		return nil, failure.Crypto("read encrypted", fmt.Errorf("decryption failed (wrong passphrase or corrupted data): %w", err))
	}
	return plaintext, nil
}

func openSealed(key *[32]byte, nonce, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// Close securely wipes the encryption key from memory.
// After calling Close, the EncryptedFileStore should not be used.
func (ks *EncryptedFileStore) Close() error {
	ZeroBytes(ks.encryptionKey[:])
	ZeroBytes(ks.pendingKey[:])
	ks.hasPending = false
	return nil
}

// RotateKey re-encrypts the named files under a key derived from
// newPassphrase and a fresh salt. The salt is journaled in
// PendingSaltFileName before any file is rewritten and promoted to
// SaltFileName once every file is done. On failure the old key stays in
// effect; files already rewritten before the failure are re-encrypted back
// and the journal is removed.
func (ks *EncryptedFileStore) RotateKey(newPassphrase []byte, filenames ...string) error {
	if len(newPassphrase) == 0 {
		return failure.Crypto("rotate key", ErrEmptyPassphrase)
	}

	fileData := make(map[string][]byte, len(filenames))
	defer func() {
		for _, plaintext := range fileData {
			ZeroBytes(plaintext)
		}
	}()
	for _, filename := range filenames {
		plaintext, err := ks.ReadEncrypted(filename)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to decrypt %s: %w", filename, err)
		}
		fileData[filename] = plaintext
	}

	newSalt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, newSalt); err != nil {
		return failure.Crypto("rotate key", fmt.Errorf("failed to generate new salt: %w", err))
	}

	pendingFile := ks.pendingSaltFile()
	if err := fileutil.WriteFileAtomic(pendingFile, newSalt, fileutil.DefaultPerm); err != nil {
		return failure.IO("rotate key", fmt.Errorf("failed to journal new salt: %w", err))
	}

	oldKey := ks.encryptionKey
	ks.encryptionKey = deriveKey(newPassphrase, newSalt)

	restore := func(written []string) {
		ks.encryptionKey = oldKey
		for _, filename := range written {
			_ = ks.WriteEncrypted(filename, fileData[filename])
		}
		os.Remove(pendingFile)
		NewLogger("RotateKey").WithField("restored_files", len(written)).Warn("Key rotation failed, previous key restored")
	}

	written := make([]string, 0, len(fileData))
	for filename, plaintext := range fileData {
		if err := ks.WriteEncrypted(filename, plaintext); err != nil {
			restore(written)
			return fmt.Errorf("failed to re-encrypt %s: %w", filename, err)
		}
		written = append(written, filename)
	}

	if err := os.Rename(pendingFile, ks.saltFile); err != nil {
		restore(written)
		return failure.IO("rotate key", fmt.Errorf("failed to promote new salt: %w", err))
	}
	if err := fileutil.SyncDir(ks.dataDir); err != nil {
		NewLogger("RotateKey").WithError(err, "sync", "promote salt").Debug("Directory sync not supported, skipping")
	}

	ZeroBytes(oldKey[:])
	ZeroBytes(ks.pendingKey[:])
	ks.hasPending = false
	NewLogger("RotateKey").WithField("files", len(written)).Info("Encryption key rotated")
	return nil
}
