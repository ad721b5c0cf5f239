package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

func TestBlackboardReadWrite(t *testing.T) {
	b := NewBlackboard()
	_, ok := b.Read("missing")
	assert.False(t, ok)

	b.Write("status", orcmodels.Value{Kind: orcmodels.KindString, Str: "ready"})
	v, ok := b.Read("status")
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "ready", s)

	assert.Equal(t, []string{"status"}, b.Keys())
}

func TestPubSubDeliversToActiveSubscribers(t *testing.T) {
	ps := NewPubSub()
	ch, unsub := ps.Subscribe("topic-a")
	defer unsub()

	ps.Publish("topic-a", Signal{Topic: "topic-a", FromID: "agent-1"})

	select {
	case sig := <-ch:
		assert.Equal(t, "agent-1", sig.FromID)
	case <-time.After(time.Second):
		t.Fatal("expected signal, got none")
	}
}

func TestPubSubIgnoresOtherTopics(t *testing.T) {
	ps := NewPubSub()
	ch, unsub := ps.Subscribe("topic-a")
	defer unsub()

	ps.Publish("topic-b", Signal{Topic: "topic-b"})

	select {
	case <-ch:
		t.Fatal("should not have received a signal for a different topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWorkingMemoryLastReturnsMostRecentWindow(t *testing.T) {
	m := NewWorkingMemory()
	for i := 0; i < 15; i++ {
		m.Write("agent-1", "note", "scratch")
	}
	last := m.Last(10)
	assert.Len(t, last, 10)
}

func TestWorkingMemoryReadByTag(t *testing.T) {
	m := NewWorkingMemory()
	m.Write("agent-1", "about plans", "plan")
	m.Write("agent-1", "about bugs", "bug")

	plans := m.Read("plan")
	require.Len(t, plans, 1)
	assert.Equal(t, "about plans", plans[0].Content)
}

func TestTaskQueueClaimAndComplete(t *testing.T) {
	q := NewTaskQueue()
	id := q.Enqueue("investigate the failure")

	assert.True(t, q.Pending())

	task, ok := q.ClaimNext("agent-1")
	require.True(t, ok)
	assert.Equal(t, id, task.ID)
	assert.False(t, q.Pending())

	_, ok = q.ClaimNext("agent-2")
	assert.False(t, ok)

	assert.True(t, q.Complete(id))
	all := q.All()
	require.Len(t, all, 1)
	assert.Equal(t, TaskDone, all[0].Status)
}
