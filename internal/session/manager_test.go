package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReturnsDistinctIDs(t *testing.T) {
	m := NewManager(0)
	a := m.Create()
	b := m.Create()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Empty(t, m.History(a), "new sessions start empty")
}

func TestHistoryFormatting(t *testing.T) {
	m := NewManager(2)
	id := m.Create()

	m.Append(id, "What does lesson 4 cover?", "Lesson 4 covers embeddings.")

	want := "User: What does lesson 4 cover?\nAssistant: Lesson 4 covers embeddings."
	assert.Equal(t, want, m.History(id))
}

// With retention 2, a third exchange evicts the first, so a question
// answered three turns ago is gone from the prompt context.
func TestTruncationKeepsMostRecent(t *testing.T) {
	m := NewManager(2)
	id := m.Create()

	m.Append(id, "first question", "first answer")
	m.Append(id, "second question", "second answer")
	m.Append(id, "third question", "third answer")

	history := m.History(id)
	assert.NotContains(t, history, "first question")
	assert.Contains(t, history, "second question")
	assert.Contains(t, history, "third question")
	assert.Equal(t, 4, len(strings.Split(history, "\n")), "two exchanges, four lines")
}

func TestUnknownSessionHistoryEmpty(t *testing.T) {
	m := NewManager(0)
	assert.Empty(t, m.History("never-created"))
}

func TestClientMintedIDCreatedOnAppend(t *testing.T) {
	m := NewManager(0)

	m.Append("client-id-1", "hello", "hi there")
	assert.Contains(t, m.History("client-id-1"), "User: hello")
}

func TestClear(t *testing.T) {
	m := NewManager(0)
	id := m.Create()
	m.Append(id, "q", "a")

	m.Clear(id)
	assert.Empty(t, m.History(id))
}

func TestConcurrentAppendsRetainLimit(t *testing.T) {
	m := NewManager(2)
	id := m.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.Append(id, fmt.Sprintf("question %d", n), fmt.Sprintf("answer %d", n))
		}(i)
	}
	wg.Wait()

	history := m.History(id)
	require.NotEmpty(t, history)
	assert.Len(t, strings.Split(history, "\n"), 4, "retention holds under concurrency")
}
