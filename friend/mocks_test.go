package friend

import (
	"errors"
	"time"

	"github.com/opd-ai/posn/crypto"
	"github.com/opd-ai/posn/failure"
)

// mockTimeProvider is a mock implementation of TimeProvider for testing.
type mockTimeProvider struct {
	fixedTime time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	return m.fixedTime
}

// failingIssuer always fails the way RandomKeyIssuer does when the random
// source is unavailable.
type failingIssuer struct{}

func (failingIssuer) IssueKey() (crypto.SymmetricKey, error) {
	return crypto.SymmetricKey{}, failure.Crypto("issue key", errors.New("random source unavailable"))
}

// sequenceIssuer hands out keys 1, 2, 3, ... so tests can predict them.
type sequenceIssuer struct {
	next byte
}

func (s *sequenceIssuer) IssueKey() (crypto.SymmetricKey, error) {
	s.next++
	return crypto.SymmetricKey{s.next}, nil
}

func newTestStore() *Store {
	s := NewStore(nil)
	s.SetTimeProvider(&mockTimeProvider{fixedTime: testAcceptedAt})
	return s
}

func request(id string) RequestedFriend {
	return RequestedFriend{ID: id, Name: "name-" + id, Message: "hi from " + id, RequestedAt: testAcceptedAt.Add(-time.Hour)}
}
