// Package crypto implements the key material handling for posn.
//
// Every accepted friend relationship gets its own 32-byte symmetric key,
// issued once at trust establishment and used with NaCl secretbox to protect
// that friend's conversation channel.
//
// # Key Issuance
//
// Keys come from a KeyIssuer. RandomKeyIssuer reads crypto/rand unless a
// different reader is injected:
//
//	issuer := crypto.RandomKeyIssuer{}
//	key, err := issuer.IssueKey()
//	if err != nil {
//	    // errors.Is(err, failure.ErrCrypto)
//	}
//	defer crypto.WipeKey(&key)
//
// # Sealing
//
// Seal and Open wrap secretbox with a fresh random nonce prefixed to the
// ciphertext:
//
//	sealed, _ := crypto.Seal(key, []byte("hello"))
//	plain, _ := crypto.Open(key, sealed)
//
// # Fingerprints
//
// Keys are never logged. Fingerprint returns a short BLAKE3 digest suitable for
// display and log fields:
//
//	fmt.Println(crypto.Fingerprint(key)) // e.g. "3f9a0c11d2e4b807"
//
// # Encryption at Rest
//
// EncryptedFileStore seals whole files with AES-256-GCM under a key derived
// from a passphrase (PBKDF2-SHA256). The application file codec uses it when a
// passphrase is configured.
//
// # Thread Safety
//
// RandomKeyIssuer, Seal, Open and Fingerprint are safe for concurrent use.
// EncryptedFileStore serializes nothing itself; callers own a store from one
// goroutine at a time.
package crypto
