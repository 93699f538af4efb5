package posn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/posn/crypto"
)

// sequenceIssuer hands out keys 1, 2, 3, ... so tests can predict them.
type sequenceIssuer struct {
	mu   sync.Mutex
	next byte
}

func (s *sequenceIssuer) IssueKey() (crypto.SymmetricKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return crypto.SymmetricKey{s.next}, nil
}

// recordingNotifier records task labels as they finish.
type recordingNotifier struct {
	mu       sync.Mutex
	finished []string
}

func (r *recordingNotifier) Started(string) {}

func (r *recordingNotifier) Finished(label string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, label)
}

func (r *recordingNotifier) labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.finished...)
}

// testOptions returns options rooted in a fresh temporary directory.
func testOptions(t *testing.T) *Options {
	t.Helper()
	options := NewOptions()
	options.DataDir = t.TempDir()
	options.KeyIssuer = &sequenceIssuer{}
	options.Notifier = nil
	return options
}

func newTestClient(t *testing.T, options *Options) *Client {
	t.Helper()
	client, err := New(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
