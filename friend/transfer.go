package friend

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/opd-ai/posn/crypto"
	"github.com/opd-ai/posn/failure"
)

// FriendFields is the flat transfer form of a Friend.
type FriendFields struct {
	ID         string    `cbor:"id"`
	Name       string    `cbor:"name"`
	Status     uint8     `cbor:"status"`
	Key        []byte    `cbor:"key"`
	AcceptedAt time.Time `cbor:"accepted_at"`
}

// RequestFields is the flat transfer form of a RequestedFriend.
type RequestFields struct {
	ID          string    `cbor:"id"`
	Name        string    `cbor:"name"`
	Message     string    `cbor:"message"`
	RequestedAt time.Time `cbor:"requested_at"`
}

// StoreFields is the flat transfer form of a Store: pending requests in
// order, then accepted friends sorted by ID.
type StoreFields struct {
	Requests []RequestFields `cbor:"requests"`
	Friends  []FriendFields  `cbor:"friends"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// RFC 3339 text keeps every representable time.Time intact; the zero
	// time encodes as null.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("friend: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("friend: CBOR decoder initialization failed: " + err.Error())
	}
}

// Fields returns the transfer form of f.
func (f Friend) Fields() FriendFields {
	key := make([]byte, crypto.KeySize)
	copy(key, f.Key[:])
	return FriendFields{
		ID:         f.ID,
		Name:       f.Name,
		Status:     uint8(f.Status),
		Key:        key,
		AcceptedAt: f.AcceptedAt,
	}
}

// FriendFromFields constructs and validates a Friend from its transfer form.
func FriendFromFields(fields FriendFields) (Friend, error) {
	key, err := crypto.KeyFromBytes(fields.Key)
	if err != nil {
		return Friend{}, fmt.Errorf("friend %q: %w", fields.ID, err)
	}
	return NewFriend(fields.ID, fields.Name, Status(fields.Status), key, fields.AcceptedAt)
}

// Fields returns the transfer form of r.
func (r RequestedFriend) Fields() RequestFields {
	return RequestFields{
		ID:          r.ID,
		Name:        r.Name,
		Message:     r.Message,
		RequestedAt: r.RequestedAt,
	}
}

// RequestFromFields constructs and validates a RequestedFriend from its
// transfer form.
func RequestFromFields(fields RequestFields) (RequestedFriend, error) {
	r := RequestedFriend{
		ID:          fields.ID,
		Name:        fields.Name,
		Message:     fields.Message,
		RequestedAt: fields.RequestedAt,
	}
	if err := r.Validate(); err != nil {
		return RequestedFriend{}, err
	}
	return r, nil
}

// Fields returns the transfer form of the whole store.
func (s *Store) Fields() StoreFields {
	fields := StoreFields{
		Requests: make([]RequestFields, 0, len(s.requests)),
		Friends:  make([]FriendFields, 0, len(s.friends)),
	}
	for _, r := range s.requests {
		fields.Requests = append(fields.Requests, r.Fields())
	}
	for _, f := range s.Friends() {
		fields.Friends = append(fields.Friends, f.Fields())
	}
	return fields
}

// StoreFromFields rebuilds a store from its transfer form with the same
// all-or-nothing validation as Restore.
func StoreFromFields(fields StoreFields, issuer crypto.KeyIssuer) (*Store, error) {
	friends := make([]Friend, 0, len(fields.Friends))
	for i, ff := range fields.Friends {
		f, err := FriendFromFields(ff)
		if err != nil {
			return nil, fmt.Errorf("friends[%d]: %w", i, err)
		}
		friends = append(friends, f)
	}

	requests := make([]RequestedFriend, 0, len(fields.Requests))
	for i, rf := range fields.Requests {
		r, err := RequestFromFields(rf)
		if err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		requests = append(requests, r)
	}

	return Restore(friends, requests, issuer)
}

// MarshalBinary encodes the store's transfer form as deterministic CBOR.
func (s *Store) MarshalBinary() ([]byte, error) {
	data, err := encMode.Marshal(s.Fields())
	if err != nil {
		return nil, failure.Serialization("marshal friend store", err)
	}
	return data, nil
}

// UnmarshalBinary replaces the store's contents with a CBOR transfer form.
// On error the store is unchanged. The key issuer and clock are kept; a zero
// Store gets the defaults.
func (s *Store) UnmarshalBinary(data []byte) error {
	var fields StoreFields
	if err := decMode.Unmarshal(data, &fields); err != nil {
		return failure.Parse("unmarshal friend store", err)
	}

	restored, err := StoreFromFields(fields, s.issuer)
	if err != nil {
		return failure.Parse("unmarshal friend store", err)
	}

	s.friends = restored.friends
	s.requests = restored.requests
	s.issuer = restored.issuer
	if s.timeProvider == nil {
		s.timeProvider = defaultTimeProvider
	}
	return nil
}
