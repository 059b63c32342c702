package chatsync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapmarket/internal/domain/chat"
)

func TestEnqueueTrimsAndMarksPending(t *testing.T) {
	buf := NewBuffer()
	entry, err := buf.Enqueue("thread-1", "alice", "  hello  ")
	require.NoError(t, err)

	assert.Equal(t, "hello", entry.Content)
	assert.True(t, entry.Pending)
	assert.True(t, entry.IsPendingID())
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, 1, buf.Len())
}

func TestEnqueueRejectsEmptyContent(t *testing.T) {
	buf := NewBuffer()
	_, err := buf.Enqueue("thread-1", "alice", "   ")
	assert.ErrorIs(t, err, chat.ErrContentRequired)
	assert.Equal(t, 0, buf.Len())
}

func TestRollbackReturnsOriginalContent(t *testing.T) {
	buf := NewBuffer()
	entry, err := buf.Enqueue("thread-1", "alice", "offer accepted")
	require.NoError(t, err)

	original, ok := buf.Rollback(entry.ID)
	require.True(t, ok)
	assert.Equal(t, "offer accepted", original)
	assert.Equal(t, 0, buf.Len())

	_, ok = buf.Rollback(entry.ID)
	assert.False(t, ok, "second rollback finds nothing")
}

func TestResolveIsIdempotent(t *testing.T) {
	buf := NewBuffer()
	entry, err := buf.Enqueue("thread-1", "alice", "hi")
	require.NoError(t, err)

	assert.True(t, buf.Resolve(entry.ID))
	assert.False(t, buf.Resolve(entry.ID))
}

func TestPendingFiltersByChat(t *testing.T) {
	buf := NewBuffer()
	_, err := buf.Enqueue("thread-1", "alice", "one")
	require.NoError(t, err)
	_, err = buf.Enqueue("thread-2", "alice", "two")
	require.NoError(t, err)
	_, err = buf.Enqueue("thread-1", "alice", "three")
	require.NoError(t, err)

	entries := buf.Pending("thread-1")
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Content)
	assert.Equal(t, "three", entries[1].Content)
}

func TestDiscardDropsOnlyThatChat(t *testing.T) {
	buf := NewBuffer()
	_, err := buf.Enqueue("thread-1", "alice", "one")
	require.NoError(t, err)
	_, err = buf.Enqueue("thread-2", "alice", "two")
	require.NoError(t, err)

	buf.Discard("thread-1")
	assert.Empty(t, buf.Pending("thread-1"))
	assert.Len(t, buf.Pending("thread-2"), 1)
}

func TestTempIDsCarryPrefixAndAreUnique(t *testing.T) {
	seen := map[chat.MessageID]bool{}
	for i := 0; i < 1000; i++ {
		id := NewTempID()
		assert.True(t, strings.HasPrefix(string(id), chat.PendingIDPrefix))
		assert.False(t, seen[id], "temp id collision: %s", id)
		seen[id] = true
	}
}
