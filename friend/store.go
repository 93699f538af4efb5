package friend

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/posn/crypto"
)

var (
	// ErrDuplicateRequest is returned when a request with the same ID is
	// already pending.
	ErrDuplicateRequest = errors.New("friend request already pending")

	// ErrAlreadyFriend is returned when a request names an accepted friend.
	ErrAlreadyFriend = errors.New("already an accepted friend")

	// ErrPendingRequest is returned when UpdateFriend targets an ID that is
	// still a pending request. Pending requests become friends only through
	// AcceptFriend.
	ErrPendingRequest = errors.New("id has a pending friend request")

	// ErrConflictingID is returned when restored state lists the same ID as
	// both a friend and a pending request.
	ErrConflictingID = errors.New("id is both a friend and a pending request")
)

// Store holds accepted friends keyed by ID and pending requests in insertion
// order. The two ID sets are disjoint.
type Store struct {
	friends      map[string]Friend
	requests     []RequestedFriend
	issuer       crypto.KeyIssuer
	timeProvider TimeProvider
}

// NewStore creates an empty store. A nil issuer issues keys from crypto/rand.
func NewStore(issuer crypto.KeyIssuer) *Store {
	if issuer == nil {
		issuer = crypto.RandomKeyIssuer{}
	}
	return &Store{
		friends:      make(map[string]Friend),
		requests:     make([]RequestedFriend, 0),
		issuer:       issuer,
		timeProvider: defaultTimeProvider,
	}
}

// Restore builds a store from decoded state. Friends are applied in order so
// a repeated ID keeps the last entry. A repeated pending ID keeps its first
// entry, the same rule AddPendingRequest enforces. Every entity is validated
// and the result must keep friend and request IDs disjoint; on any error no
// store is returned.
func Restore(friends []Friend, requests []RequestedFriend, issuer crypto.KeyIssuer) (*Store, error) {
	s := NewStore(issuer)

	for i, f := range friends {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("friends[%d]: %w", i, err)
		}
		s.friends[f.ID] = f
	}

	pending := make(map[string]struct{}, len(requests))
	collapsed := 0
	for i, r := range requests {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		if _, exists := s.friends[r.ID]; exists {
			return nil, fmt.Errorf("requests[%d] %q: %w", i, r.ID, ErrConflictingID)
		}
		if _, dup := pending[r.ID]; dup {
			collapsed++
			continue
		}
		pending[r.ID] = struct{}{}
		s.requests = append(s.requests, r)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Restore",
		"friends":   len(s.friends),
		"requests":  len(s.requests),
		"collapsed": collapsed,
	}).Debug("Friend store restored")

	return s, nil
}

// SetTimeProvider replaces the clock used to stamp accepted friends.
// Pass nil to reset to the default implementation.
func (s *Store) SetTimeProvider(tp TimeProvider) {
	if tp == nil {
		tp = defaultTimeProvider
	}
	s.timeProvider = tp
}

// AcceptFriend promotes request to an accepted friend with a freshly issued
// key and the given status. Every pending request with the same ID is removed
// (none pending is not an error) and any existing friend with that ID is
// replaced. If the key cannot be issued the store is left unchanged and the
// error matches failure.ErrCrypto.
func (s *Store) AcceptFriend(request RequestedFriend, status Status) (Friend, error) {
	if err := request.Validate(); err != nil {
		return Friend{}, err
	}
	if !status.Valid() {
		return Friend{}, fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(status))
	}

	logrus.WithFields(logrus.Fields{
		"function":  "AcceptFriend",
		"friend_id": request.ID,
		"status":    status,
	}).Debug("Accepting friend request")

	key, err := s.issuer.IssueKey()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "AcceptFriend",
			"friend_id": request.ID,
		}).WithError(err).Error("Failed to issue friend key")
		return Friend{}, err
	}

	f := Friend{
		ID:         request.ID,
		Name:       request.Name,
		Status:     status,
		Key:        key,
		AcceptedAt: s.timeProvider.Now(),
	}

	removed := s.removeRequest(request.ID)
	s.friends[f.ID] = f

	logrus.WithFields(logrus.Fields{
		"function":         "AcceptFriend",
		"friend_id":        f.ID,
		"status":           f.Status,
		"key_fingerprint":  f.Fingerprint(),
		"removed_requests": removed,
	}).Info("Friend accepted")

	return f, nil
}

// AddPendingRequest appends request to the pending list. A request whose ID
// is already pending or already an accepted friend is rejected and the store
// is unchanged.
func (s *Store) AddPendingRequest(request RequestedFriend) error {
	if err := request.Validate(); err != nil {
		return err
	}
	if _, exists := s.friends[request.ID]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyFriend, request.ID)
	}
	if s.HasPendingRequest(request.ID) {
		return fmt.Errorf("%w: %q", ErrDuplicateRequest, request.ID)
	}

	s.requests = append(s.requests, request)

	logrus.WithFields(logrus.Fields{
		"function":   "AddPendingRequest",
		"request_id": request.ID,
		"pending":    len(s.requests),
	}).Info("Friend request added")

	return nil
}

// GetFriend returns the accepted friend with the given ID.
func (s *Store) GetFriend(id string) (Friend, bool) {
	f, ok := s.friends[id]
	return f, ok
}

// UpdateFriend inserts or replaces the accepted friend with f.ID. Pending
// requests are never touched: an ID that is still pending is rejected with
// ErrPendingRequest.
func (s *Store) UpdateFriend(f Friend) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if s.HasPendingRequest(f.ID) {
		return fmt.Errorf("%w: %q", ErrPendingRequest, f.ID)
	}

	_, existed := s.friends[f.ID]
	s.friends[f.ID] = f

	logrus.WithFields(logrus.Fields{
		"function":  "UpdateFriend",
		"friend_id": f.ID,
		"status":    f.Status,
		"existed":   existed,
	}).Debug("Friend updated")

	return nil
}

// RemoveFriend deletes an accepted friend and reports whether one existed.
func (s *Store) RemoveFriend(id string) bool {
	if _, ok := s.friends[id]; !ok {
		return false
	}
	delete(s.friends, id)

	logrus.WithFields(logrus.Fields{
		"function":  "RemoveFriend",
		"friend_id": id,
	}).Info("Friend removed")
	return true
}

// RejectRequest drops the pending request with the given ID and reports
// whether one was pending.
func (s *Store) RejectRequest(id string) bool {
	removed := s.removeRequest(id)
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"function":   "RejectRequest",
			"request_id": id,
		}).Info("Friend request rejected")
	}
	return removed > 0
}

// HasPendingRequest reports whether a request with the given ID is pending.
func (s *Store) HasPendingRequest(id string) bool {
	for _, r := range s.requests {
		if r.ID == id {
			return true
		}
	}
	return false
}

// PendingRequest returns the pending request with the given ID.
func (s *Store) PendingRequest(id string) (RequestedFriend, bool) {
	for _, r := range s.requests {
		if r.ID == id {
			return r, true
		}
	}
	return RequestedFriend{}, false
}

// Friends returns a snapshot of accepted friends sorted by ID.
func (s *Store) Friends() []Friend {
	out := make([]Friend, 0, len(s.friends))
	for _, f := range s.friends {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingRequests returns a snapshot of pending requests in insertion order.
func (s *Store) PendingRequests() []RequestedFriend {
	out := make([]RequestedFriend, len(s.requests))
	copy(out, s.requests)
	return out
}

// Len returns the number of accepted friends.
func (s *Store) Len() int { return len(s.friends) }

// PendingLen returns the number of pending requests.
func (s *Store) PendingLen() int { return len(s.requests) }

// removeRequest drops every pending entry with id, preserving the order of
// the rest, and returns how many were removed.
func (s *Store) removeRequest(id string) int {
	kept := s.requests[:0]
	removed := 0
	for _, r := range s.requests {
		if r.ID == id {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	// clear the tail so dropped requests are not retained by the backing array
	for i := len(kept); i < len(s.requests); i++ {
		s.requests[i] = RequestedFriend{}
	}
	s.requests = kept
	return removed
}
