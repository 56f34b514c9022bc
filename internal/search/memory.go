package search

import (
	"context"
	"strings"
	"sync"
)

// MemoryIndex is an in-memory implementation of Index for dev and tests.
// Matching is a case-insensitive substring scan, which is close enough to
// exercise callers without a running cluster.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryIndex constructs a MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]Entry)}
}

// Upsert stores or overwrites the entry for the document id.
func (m *MemoryIndex) Upsert(ctx context.Context, documentID string, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[documentID] = entry
	return nil
}

// Delete removes the entry for the document id, if present.
func (m *MemoryIndex) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, documentID)
	return nil
}

// Search scans entries for the owner and returns substring matches with a
// crude highlighted snippet.
func (m *MemoryIndex) Search(ctx context.Context, owner, query string) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []Hit
	for id, entry := range m.entries {
		if entry.Metadata.Owner != owner {
			continue
		}
		idx := strings.Index(strings.ToLower(entry.Text), needle)
		if idx < 0 {
			continue
		}
		hits = append(hits, Hit{
			DocumentID: id,
			Highlights: []string{snippet(entry.Text, idx, len(query))},
		})
	}
	return hits, nil
}

// Len reports the number of stored entries.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Get returns the stored entry for a document id.
func (m *MemoryIndex) Get(documentID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[documentID]
	return entry, ok
}

func snippet(text string, idx, length int) string {
	const contextChars = 40
	start := idx - contextChars
	if start < 0 {
		start = 0
	}
	end := idx + length + contextChars
	if end > len(text) {
		end = len(text)
	}
	return text[start:idx] + "<em>" + text[idx:idx+length] + "</em>" + text[idx+length:end]
}

var _ Index = (*MemoryIndex)(nil)
