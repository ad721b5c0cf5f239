package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockReplaysScriptedChunksInOrder(t *testing.T) {
	m := NewMock()
	m.Enqueue(Script{
		{Kind: ChunkText, Text: "hello"},
		{Kind: ChunkDone, TokenCount: 3},
	})

	ch, err := m.Chat(context.Background(), "sess-1", ChatConfig{Model: "test"}, nil)
	require.NoError(t, err)

	var got []StreamChunk
	for c := range ch {
		got = append(got, c)
	}

	require.Len(t, got, 2)
	assert.Equal(t, ChunkText, got[0].Kind)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, ChunkDone, got[1].Kind)
	assert.Equal(t, 3, got[1].TokenCount)
}

func TestMockDefaultsToImmediateDone(t *testing.T) {
	m := NewMock()
	ch, err := m.Chat(context.Background(), "sess-1", ChatConfig{}, nil)
	require.NoError(t, err)

	c := <-ch
	assert.Equal(t, ChunkDone, c.Kind)
	_, open := <-ch
	assert.False(t, open)
}

func TestMockAbortStopsStream(t *testing.T) {
	m := NewMock()
	m.Enqueue(Script{
		{Kind: ChunkText, Text: "one"},
		{Kind: ChunkText, Text: "two"},
		{Kind: ChunkText, Text: "three"},
		{Kind: ChunkDone},
	})

	ch, err := m.Chat(context.Background(), "sess-1", ChatConfig{}, nil)
	require.NoError(t, err)

	<-ch
	m.Abort("sess-1")

	timeout := time.After(time.Second)
	drained := 0
	for {
		select {
		case _, open := <-ch:
			if !open {
				assert.Less(t, drained, 3)
				return
			}
			drained++
		case <-timeout:
			t.Fatal("channel never closed after abort")
		}
	}
}
