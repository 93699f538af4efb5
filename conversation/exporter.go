package conversation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/posn/failure"
	"github.com/opd-ai/posn/fileutil"
	"github.com/opd-ai/posn/limits"
	"github.com/opd-ai/posn/task"
)

// Threads maps a thread ID to its messages in conversation order. Exporters
// only read it.
type Threads map[string][]Message

// ErrThreadMismatch is returned when a message is listed under a thread other
// than the one it names.
var ErrThreadMismatch = errors.New("message belongs to a different thread")

// document is the export envelope.
type document struct {
	Conversations []json.RawMessage `json:"conversations"`
}

// Exporter writes Threads to caller-chosen files. The zero value is ready to
// use.
type Exporter struct {
	perm os.FileMode
}

// NewExporter returns an exporter writing files with fileutil.DefaultPerm.
func NewExporter() *Exporter {
	return &Exporter{perm: fileutil.DefaultPerm}
}

// Len returns the total number of messages across all threads.
func (t Threads) Len() int {
	n := 0
	for _, msgs := range t {
		n += len(msgs)
	}
	return n
}

// sortedIDs returns the thread IDs in ascending order, which fixes the
// cross-thread order of an export.
func (t Threads) sortedIDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Encode flattens threads into the export document. A message without a
// thread ID takes the ID of the thread it is listed under; a message naming a
// different thread is rejected with ErrThreadMismatch. Every message is
// validated and encoded before anything is returned; any failure matches
// failure.ErrSerialization.
func (e *Exporter) Encode(threads Threads) ([]byte, error) {
	doc := document{Conversations: make([]json.RawMessage, 0, threads.Len())}

	for _, id := range threads.sortedIDs() {
		for i, m := range threads[id] {
			if m.ThreadID == "" {
				m.ThreadID = id
			}
			if m.ThreadID != id {
				return nil, failure.Serialization("export conversations",
					fmt.Errorf("thread %q message %d: %w: %q", id, i, ErrThreadMismatch, m.ThreadID))
			}
			if err := m.Validate(); err != nil {
				return nil, failure.Serialization("export conversations", fmt.Errorf("thread %q message %d: %w", id, i, err))
			}
			raw, err := json.Marshal(m)
			if err != nil {
				return nil, failure.Serialization("export conversations", fmt.Errorf("thread %q message %d: %w", id, i, err))
			}
			doc.Conversations = append(doc.Conversations, raw)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, failure.Serialization("export conversations", err)
	}
	if err := limits.ValidateExport(data); err != nil {
		return nil, failure.Serialization("export conversations", err)
	}
	return data, nil
}

// Export writes all messages of threads to path as
// {"conversations": [...]}, replacing any existing file atomically. Messages
// keep their order within a thread; threads follow in ID order. Nothing is
// written unless every message encodes.
func (e *Exporter) Export(threads Threads, path string) error {
	data, err := e.Encode(threads)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Export",
			"path":     path,
		}).WithError(err).Error("Conversation export failed before writing")
		return err
	}
	return e.write(path, data, len(threads))
}

func (e *Exporter) write(path string, data []byte, threadCount int) error {
	perm := e.perm
	if perm == 0 {
		perm = fileutil.DefaultPerm
	}
	if err := fileutil.WriteFileAtomic(path, data, perm); err != nil {
		err = failure.IO("export conversations", err)
		logrus.WithFields(logrus.Fields{
			"function": "Export",
			"path":     path,
		}).WithError(err).Error("Conversation export failed")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Export",
		"path":     path,
		"threads":  threadCount,
		"bytes":    len(data),
	}).Info("Conversations exported")
	return nil
}

// ExportAsync encodes threads on the calling goroutine and writes the result
// in the background. Changes the caller makes to threads after it returns do
// not affect the export.
func (e *Exporter) ExportAsync(threads Threads, path string, notifier task.Notifier) *task.Task {
	const label = "export conversations"

	data, err := e.Encode(threads)
	if err != nil {
		return task.Failed(label, notifier, err)
	}
	count := len(threads)
	return task.Run(label, notifier, func() error {
		return e.write(path, data, count)
	})
}

// Import reads an export document back into threads, grouping messages by
// thread_id in document order.
func Import(path string) (Threads, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.IO("import conversations", err)
	}
	return Decode(data)
}

// Decode parses an export document. Any malformed message fails the whole
// decode with failure.ErrParse.
func Decode(data []byte) (Threads, error) {
	if err := limits.ValidateExport(data); err != nil {
		return nil, failure.Parse("decode conversations", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, failure.Parse("decode conversations", err)
	}
	raw, ok := envelope["conversations"]
	if !ok {
		return nil, failure.Parse("decode conversations", errors.New(`missing "conversations" array`))
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, failure.Parse("decode conversations", errors.New(`"conversations" must be an array`))
	}

	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, failure.Parse("decode conversations", err)
	}

	threads := make(Threads)
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return nil, failure.Parse("decode conversations", fmt.Errorf("message %d: %w", i, err))
		}
		threads[m.ThreadID] = append(threads[m.ThreadID], m)
	}
	return threads, nil
}
