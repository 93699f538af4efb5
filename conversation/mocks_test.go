package conversation

import (
	"fmt"
	"sync"
	"time"
)

// recordingNotifier records task signals for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	started  []string
	finished []error
}

func (r *recordingNotifier) Started(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, label)
}

func (r *recordingNotifier) Finished(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, err)
}

func (r *recordingNotifier) results() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...), append([]error(nil), r.finished...)
}

// message builds a deterministic message for thread with the given sequence
// number.
func message(thread string, seq int) Message {
	return Message{
		ID:        fmt.Sprintf("%s-m%d", thread, seq),
		ThreadID:  thread,
		Sender:    "alice",
		Content:   fmt.Sprintf("message %d in %s", seq, thread),
		Timestamp: testTimestamp.Add(time.Duration(seq) * time.Minute),
		Type:      MessageTypeNormal,
	}
}
