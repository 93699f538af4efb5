package friend

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/posn/crypto"
)

// Status is the relationship state of an accepted friend.
type Status uint8

const (
	StatusNone Status = iota
	StatusAccepted
	StatusAwaitingConfirmation
	StatusBlocked
)

var statusNames = [...]string{
	StatusNone:                 "none",
	StatusAccepted:             "accepted",
	StatusAwaitingConfirmation: "awaiting_confirmation",
	StatusBlocked:              "blocked",
}

// ErrInvalidStatus is returned for a status outside the enumeration.
var ErrInvalidStatus = errors.New("invalid friend status")

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText decodes a status name. Unknown names are rejected.
func (s *Status) UnmarshalText(text []byte) error {
	status, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ParseStatus returns the status with the given name.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusNone, fmt.Errorf("%w: %q", ErrInvalidStatus, name)
}

// Friend is an accepted peer relationship with its symmetric key.
type Friend struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Status     Status              `json:"status"`
	Key        crypto.SymmetricKey `json:"key"`
	AcceptedAt time.Time           `json:"accepted_at"`
}

var (
	// ErrInvalidID is returned for an empty friend or request ID.
	ErrInvalidID = errors.New("friend id cannot be empty")

	// ErrMissingKey is returned for a friend without key material.
	ErrMissingKey = errors.New("friend has no symmetric key")
)

// NewFriend builds a Friend from its parts and validates it.
func NewFriend(id, name string, status Status, key crypto.SymmetricKey, acceptedAt time.Time) (Friend, error) {
	f := Friend{
		ID:         id,
		Name:       name,
		Status:     status,
		Key:        key,
		AcceptedAt: acceptedAt,
	}
	if err := f.Validate(); err != nil {
		return Friend{}, err
	}
	return f, nil
}

// Validate checks the fields every stored Friend must have.
func (f Friend) Validate() error {
	if f.ID == "" {
		return ErrInvalidID
	}
	if !f.Status.Valid() {
		return fmt.Errorf("friend %q: %w: %d", f.ID, ErrInvalidStatus, uint8(f.Status))
	}
	if f.Key.IsZero() {
		return fmt.Errorf("friend %q: %w", f.ID, ErrMissingKey)
	}
	return nil
}

// Fingerprint returns the short display fingerprint of the friend's key.
func (f Friend) Fingerprint() string {
	return crypto.Fingerprint(f.Key)
}

// IsBlocked reports whether the relationship is blocked.
func (f Friend) IsBlocked() bool {
	return f.Status == StatusBlocked
}
