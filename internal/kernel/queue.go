package kernel

import (
	"container/heap"
	"time"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// queueItem wraps an Activation with its heap index, maintained by
// container/heap so Remove/update operations stay O(log n).
type queueItem struct {
	activation orcmodels.Activation
	index      int
}

// priorityQueue orders activations by (Priority, CreatedAt): lower priority
// number runs first, ties broken by earlier creation, so the schedule is
// stable under equal priority.
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i].activation, pq[j].activation
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// ActivationQueue is the min-heap the Kernel pulls ready activations from.
type ActivationQueue struct {
	pq priorityQueue
}

// NewActivationQueue creates an empty queue.
func NewActivationQueue() *ActivationQueue {
	q := &ActivationQueue{}
	heap.Init(&q.pq)
	return q
}

// Push enqueues an activation, defaulting CreatedAt to now if unset.
func (q *ActivationQueue) Push(a orcmodels.Activation) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	heap.Push(&q.pq, &queueItem{activation: a})
}

// Pop removes and returns the highest-priority (lowest Priority value,
// earliest CreatedAt) activation. ok is false when the queue is empty.
func (q *ActivationQueue) Pop() (orcmodels.Activation, bool) {
	if q.pq.Len() == 0 {
		return orcmodels.Activation{}, false
	}
	item := heap.Pop(&q.pq).(*queueItem)
	return item.activation, true
}

// Len reports how many activations are waiting.
func (q *ActivationQueue) Len() int {
	return q.pq.Len()
}

// Clear drops every queued activation without running it.
func (q *ActivationQueue) Clear() {
	q.pq = q.pq[:0]
}
