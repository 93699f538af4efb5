package friend

import "time"

// RequestedFriend is a pending, not yet accepted peer relationship. It has no
// key. Identity is the ID.
type RequestedFriend struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Message     string    `json:"message,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRequestedFriend creates a request stamped with the current time.
func NewRequestedFriend(id, name, message string) RequestedFriend {
	return RequestedFriend{
		ID:          id,
		Name:        name,
		Message:     message,
		RequestedAt: defaultTimeProvider.Now(),
	}
}

// Validate checks the fields every stored request must have.
func (r RequestedFriend) Validate() error {
	if r.ID == "" {
		return ErrInvalidID
	}
	return nil
}

// SameIdentity reports whether r and other name the same peer.
func (r RequestedFriend) SameIdentity(other RequestedFriend) bool {
	return r.ID == other.ID
}
