// Package limits provides centralized size limits for posn documents and
// messages, and the validation functions that enforce them.
//
// # Size Hierarchy
//
//   - MaxMessageContent (64 KiB): the largest content a single conversation
//     message may carry before export refuses it.
//   - MaxSealedMessage: MaxMessageContent plus the nonce and Poly1305 tag
//     added by crypto.Seal.
//   - MaxDocument (16 MiB): the largest application file accepted by the
//     friend-state decoder. Checked before any JSON parsing starts.
//   - MaxExport (256 MiB): the largest conversation export written or read.
//
// # Validation Functions
//
//	if err := limits.ValidateDocument(data); err != nil {
//	    // ErrEmpty or ErrTooLarge, with the actual size in the message
//	}
//
// For custom limits, use ValidateSize directly.
package limits
