// Package task runs short batch operations (saves, exports) off the caller's
// goroutine and reports a typed result.
//
// A Task is observed by polling (Poll), by blocking (Wait), or by a
// completion callback (OnComplete). Progress display is left to a Notifier
// that receives a start and a finish signal.
//
//	t := task.Run("export conversations", notifier, func() error {
//	    return exporter.Export(threads, path)
//	})
//	t.OnComplete(func(err error) {
//	    if err != nil {
//	        // report the failure; nothing is swallowed
//	    }
//	})
//
// Tasks are not cancellable: the work runs to completion or fails. The
// context given to Wait bounds only the wait.
package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Notifier receives progress signals for a task.
type Notifier interface {
	Started(label string)
	Finished(label string, err error)
}

// NopNotifier ignores all signals.
type NopNotifier struct{}

func (NopNotifier) Started(string)         {}
func (NopNotifier) Finished(string, error) {}

// LogNotifier reports task progress through logrus.
type LogNotifier struct{}

// Started logs the start of a task.
func (LogNotifier) Started(label string) {
	logrus.WithFields(logrus.Fields{
		"function": "Started",
		"task":     label,
	}).Info("Task started")
}

// Finished logs the outcome of a task.
func (LogNotifier) Finished(label string, err error) {
	entry := logrus.WithFields(logrus.Fields{
		"function": "Finished",
		"task":     label,
	})
	if err != nil {
		entry.WithError(err).Error("Task failed")
		return
	}
	entry.Info("Task finished")
}

// Task is the handle of one background operation.
type Task struct {
	label     string
	done      chan struct{}
	mu        sync.Mutex
	finished  bool
	err       error
	callbacks []func(error)
}

// Run starts fn on a new goroutine. notifier.Started is called before Run
// returns; notifier.Finished is called once fn returns, before the task is
// marked done. A panic in fn is reported as the task's error.
func Run(label string, notifier Notifier, fn func() error) *Task {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	t := newTask(label)
	notifier.Started(label)

	go func() {
		err := safeCall(fn)
		notifier.Finished(label, err)
		t.complete(err)
	}()

	return t
}

// Failed returns a task that has already completed with err. It is used when
// an operation fails before any background work starts, so callers still get
// a uniform handle and the notifier sees both signals.
func Failed(label string, notifier Notifier, err error) *Task {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	t := newTask(label)
	notifier.Started(label)
	notifier.Finished(label, err)
	t.complete(err)
	return t
}

func newTask(label string) *Task {
	return &Task{
		label: label,
		done:  make(chan struct{}),
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn()
}

func (t *Task) complete(err error) {
	t.mu.Lock()
	t.err = err
	t.finished = true
	callbacks := t.callbacks
	t.callbacks = nil
	close(t.done)
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(err)
	}
}

// Label returns the label given to Run.
func (t *Task) Label() string { return t.label }

// Done returns a channel closed when the task has completed.
func (t *Task) Done() <-chan struct{} { return t.done }

// Poll reports whether the task has completed and, if so, its error.
func (t *Task) Poll() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished, t.err
}

// Wait blocks until the task completes or ctx is done. It returns the task's
// error, or ctx.Err() if the wait was abandoned; the work keeps running.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnComplete registers cb to receive the task's error once. If the task has
// already completed, cb runs immediately on the calling goroutine; otherwise
// it runs on the task's goroutine.
func (t *Task) OnComplete(cb func(error)) {
	t.mu.Lock()
	if !t.finished {
		t.callbacks = append(t.callbacks, cb)
		t.mu.Unlock()
		return
	}
	err := t.err
	t.mu.Unlock()
	cb(err)
}
