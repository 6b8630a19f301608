package board

import (
	"sync"
	"time"
)

// Comment is one board entry. Author and Text are kept as submitted and
// escaped when rendered.
type Comment struct {
	Author   string
	Text     string
	PostedAt time.Time
}

// Board is an append-only, process-local comment list
type Board struct {
	mu       sync.RWMutex
	comments []Comment
	now      func() time.Time
}

// New creates an empty board
func New() *Board {
	return &Board{now: time.Now}
}

// Add appends a comment
func (b *Board) Add(author, text string) Comment {
	c := Comment{Author: author, Text: text, PostedAt: b.now()}

	b.mu.Lock()
	b.comments = append(b.comments, c)
	b.mu.Unlock()

	return c
}

// List returns a copy of all comments in insertion order
func (b *Board) List() []Comment {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Comment, len(b.comments))
	copy(out, b.comments)
	return out
}

// Len returns the number of comments
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.comments)
}
