package dispatch

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var taskSeq atomic.Uint64

// Task is the handle of one background dispatch task.
type Task struct {
	id       string
	kind     Kind
	strategy Strategy
	started  time.Time
	done     chan struct{}
	err      error
}

func newTask(kind Kind, strategy Strategy) *Task {
	return &Task{
		id:       newTaskID(),
		kind:     kind,
		strategy: strategy,
		started:  time.Now(),
		done:     make(chan struct{}),
	}
}

func newTaskID() string {
	u, err := uuid.NewRandom()
	if err != nil {
		return "task-" + strconv.FormatUint(taskSeq.Add(1), 10)
	}
	return u.String()
}

// ID - return the task ID
func (t *Task) ID() string {
	return t.id
}

// Kind - return the kind of the event the task dispatches
func (t *Task) Kind() Kind {
	return t.kind
}

// Strategy - return the strategy that spawned the task
func (t *Task) Strategy() Strategy {
	return t.strategy
}

// Started - return when the task was spawned
func (t *Task) Started() time.Time {
	return t.started
}

// Done - report whether the task has finished or was dropped. It never blocks.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait - block until the task finishes or ctx is done
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err - return why the task was dropped before running, nil otherwise.
// Only meaningful once Done reports true.
func (t *Task) Err() error {
	if !t.Done() {
		return nil
	}
	return t.err
}

func (t *Task) finish() {
	close(t.done)
}

func (t *Task) fail(err error) {
	t.err = err
	close(t.done)
}
