package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxMessageContent is the largest message content accepted for export.
	MaxMessageContent = 64 * 1024

	// SealNonceSize is the random nonce prefixed to every sealed payload.
	SealNonceSize = 24

	// SealOverhead is the Poly1305 tag added by secretbox.Seal.
	SealOverhead = 16 // golang.org/x/crypto/nacl/secretbox.Overhead

	// MaxSealedMessage is the largest sealed message: nonce, content and tag.
	MaxSealedMessage = SealNonceSize + MaxMessageContent + SealOverhead

	// MaxDocument is the largest application file the friend-state decoder
	// will parse.
	MaxDocument = 16 * 1024 * 1024

	// MaxExport is the largest conversation export document.
	MaxExport = 256 * 1024 * 1024
)

var (
	// ErrEmpty indicates empty input was provided
	ErrEmpty = errors.New("empty input")

	// ErrTooLarge indicates input exceeds its maximum size
	ErrTooLarge = errors.New("input too large")
)

// ValidateSize validates data against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateSize(data []byte, maxSize int) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrTooLarge, len(data), maxSize)
	}
	return nil
}

// ValidateDocument validates an application file against MaxDocument.
func ValidateDocument(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > MaxDocument {
		return fmt.Errorf("%w: document size %d exceeds limit %d", ErrTooLarge, len(data), MaxDocument)
	}
	return nil
}

// ValidateExport validates a conversation export document against MaxExport.
func ValidateExport(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > MaxExport {
		return fmt.Errorf("%w: export size %d exceeds limit %d", ErrTooLarge, len(data), MaxExport)
	}
	return nil
}

// ValidateMessageContent validates message content against MaxMessageContent.
// Empty content is allowed: a message may carry only an attachment reference
// or an action.
func ValidateMessageContent(content string) error {
	if len(content) > MaxMessageContent {
		return fmt.Errorf("%w: message content size %d exceeds limit %d", ErrTooLarge, len(content), MaxMessageContent)
	}
	return nil
}

// ValidateSealed validates a sealed payload against MaxSealedMessage and the
// minimum nonce-plus-tag length.
func ValidateSealed(sealed []byte) error {
	if len(sealed) == 0 {
		return ErrEmpty
	}
	if len(sealed) < SealNonceSize+SealOverhead {
		return fmt.Errorf("sealed payload too short: %d bytes (minimum %d)", len(sealed), SealNonceSize+SealOverhead)
	}
	if len(sealed) > MaxSealedMessage {
		return fmt.Errorf("%w: sealed size %d exceeds limit %d", ErrTooLarge, len(sealed), MaxSealedMessage)
	}
	return nil
}
