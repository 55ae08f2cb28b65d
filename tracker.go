package dispatch

import (
	"context"
	"slices"

	"github.com/lockp111/go-cmap"
	"golang.org/x/time/rate"
)

// Tracker keeps the handles of background dispatch tasks. Finished tasks are
// not removed when they complete; Reap drops them on the next background
// dispatch and DrainAll forgets every handle at shutdown.
type Tracker struct {
	pool  *pool
	tasks cmap.ConcurrentMap[string, *Task]
}

// NewTracker - return a tracker running at most maxInFlight tasks at once,
// started no faster than limit per second when limit is finite. Tasks beyond
// the limit queue in spawn order.
func NewTracker(maxInFlight int, limit rate.Limit, burst int) *Tracker {
	return &Tracker{
		pool:  newPool(maxInFlight, limit, burst),
		tasks: cmap.New[*Task](),
	}
}

// Spawn - track a new task and start fn on its own goroutine once the tracker
// has a free slot. Spawn never waits for capacity: the task is queued and the
// handle returned right away. The task waits for its slot as long as ctx
// allows; if ctx ends first fn is never run and Err reports why. Spawn fails
// only when ctx has already ended.
func (t *Tracker) Spawn(ctx context.Context, kind Kind, strategy Strategy, fn func()) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	task := newTask(kind, strategy)
	t.tasks.Upsert(task.id, func(_ *Task, _ bool) *Task {
		return task
	})

	go func() {
		if err := t.pool.acquire(ctx); err != nil {
			task.fail(err)
			return
		}
		defer t.pool.release()
		defer task.finish()
		fn()
	}()
	return task, nil
}

// Reap - remove the handles of finished tasks and return how many were removed.
// Running tasks are left alone; nothing blocks.
func (t *Tracker) Reap() int {
	var finished []string
	t.tasks.IterCb(func(id string, task *Task) {
		if task.Done() {
			finished = append(finished, id)
		}
	})

	removed := 0
	for _, id := range finished {
		t.tasks.RemoveCb(id, func(task *Task, exists bool) bool {
			if exists && task.Done() {
				removed++
				return true
			}
			return false
		})
	}
	return removed
}

// DrainAll - forget every tracked handle without waiting for or stopping the tasks
func (t *Tracker) DrainAll() int {
	var ids []string
	t.tasks.IterCb(func(id string, _ *Task) {
		ids = append(ids, id)
	})

	removed := 0
	for _, id := range ids {
		t.tasks.RemoveCb(id, func(_ *Task, exists bool) bool {
			if exists {
				removed++
			}
			return exists
		})
	}
	return removed
}

// InFlight - return the tracked handles, oldest first. Finished tasks that
// have not been reaped yet are included.
func (t *Tracker) InFlight() []*Task {
	var tasks []*Task
	t.tasks.IterCb(func(_ string, task *Task) {
		tasks = append(tasks, task)
	})
	slices.SortFunc(tasks, func(a, b *Task) int {
		return a.started.Compare(b.started)
	})
	return tasks
}

// Count - return the number of tracked handles
func (t *Tracker) Count() int {
	return t.tasks.Count()
}

// Capacity - return the maximum number of tasks running at once
func (t *Tracker) Capacity() int {
	return t.pool.Size()
}

// Wait - block until every currently tracked task has finished or ctx is done
func (t *Tracker) Wait(ctx context.Context) error {
	for _, task := range t.InFlight() {
		if err := task.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
