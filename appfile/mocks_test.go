package appfile

import (
	"time"

	"github.com/opd-ai/posn/crypto"
	"github.com/opd-ai/posn/friend"
)

// testTime is the fixed clock reading used for stamped entities.
var testTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// sequenceIssuer hands out keys 1, 2, 3, ... so tests can predict them.
type sequenceIssuer struct {
	next byte
}

func (s *sequenceIssuer) IssueKey() (crypto.SymmetricKey, error) {
	s.next++
	return crypto.SymmetricKey{s.next}, nil
}

func request(id string) friend.RequestedFriend {
	return friend.RequestedFriend{ID: id, Name: "name-" + id, Message: "hi from " + id, RequestedAt: testTime}
}

// populatedStore holds two friends and two pending requests.
func populatedStore(t interface{ Fatalf(string, ...interface{}) }) *friend.Store {
	s := friend.NewStore(&sequenceIssuer{})
	for _, id := range []string{"bob", "alice"} {
		f, err := friend.NewFriend(id, "name-"+id, friend.StatusAccepted, crypto.SymmetricKey{byte(len(id))}, testTime)
		if err != nil {
			t.Fatalf("NewFriend(%q): %v", id, err)
		}
		if err := s.UpdateFriend(f); err != nil {
			t.Fatalf("UpdateFriend(%q): %v", id, err)
		}
	}
	for _, id := range []string{"dave", "carol"} {
		if err := s.AddPendingRequest(request(id)); err != nil {
			t.Fatalf("AddPendingRequest(%q): %v", id, err)
		}
	}
	return s
}
