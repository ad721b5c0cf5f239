package collab

import (
	"sync"

	"github.com/google/uuid"
)

// TaskStatus tracks a queued task's lifecycle.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskClaimed TaskStatus = "claimed"
	TaskDone    TaskStatus = "done"
)

// Task is one unit of work in the persistent task queue. Unlike working
// memory, tasks survive across an autonomous runner's cycles: a cycle that
// goes idle pulls its next prompt from here before falling back to the
// mission prompt.
type Task struct {
	ID          string
	Description string
	Status      TaskStatus
	ClaimedBy   string
}

// TaskQueue is a FIFO of pending tasks plus a claimed set, safe for
// concurrent use by multiple sessions within one run.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []*Task
}

// NewTaskQueue creates an empty TaskQueue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Enqueue adds a new pending task and returns its ID.
func (q *TaskQueue) Enqueue(description string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	q.tasks = append(q.tasks, &Task{ID: id, Description: description, Status: TaskPending})
	return id
}

// ClaimNext returns and marks claimed the oldest pending task, if any.
func (q *TaskQueue) ClaimNext(claimedBy string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.Status == TaskPending {
			t.Status = TaskClaimed
			t.ClaimedBy = claimedBy
			return *t, true
		}
	}
	return Task{}, false
}

// Complete marks a task done.
func (q *TaskQueue) Complete(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.ID == id {
			t.Status = TaskDone
			return true
		}
	}
	return false
}

// Pending reports whether any task is still pending.
func (q *TaskQueue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.Status == TaskPending {
			return true
		}
	}
	return false
}

// All returns a snapshot of every task, in enqueue order.
func (q *TaskQueue) All() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.tasks))
	for i, t := range q.tasks {
		out[i] = *t
	}
	return out
}
