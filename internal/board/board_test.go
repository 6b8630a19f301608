package board

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_AddAndList(t *testing.T) {
	b := New()
	assert.Empty(t, b.List())

	b.Add("anonymous", "first")
	b.Add("admin", `<script>alert("x")</script>`)

	comments := b.List()
	require.Len(t, comments, 2)
	assert.Equal(t, "anonymous", comments[0].Author)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, `<script>alert("x")</script>`, comments[1].Text, "stored as submitted")
	assert.False(t, comments[1].PostedAt.IsZero())
}

func TestBoard_ListIsACopy(t *testing.T) {
	b := New()
	b.Add("user1", "hello")

	comments := b.List()
	comments[0].Text = "changed"

	assert.Equal(t, "hello", b.List()[0].Text)
}

func TestBoard_ConcurrentAdd(t *testing.T) {
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Add("user", fmt.Sprintf("comment %d", i))
			_ = b.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, b.Len())
}
