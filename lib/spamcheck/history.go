package spamcheck

import (
	"container/ring"
	"sync"
	"time"
)

// Entry is a checked request with its result, kept in memory for recent checks view.
type Entry struct {
	Request   Request   `json:"request"`
	Result    Result    `json:"result"`
	Timestamp time.Time `json:"ts"`
}

// maxEntryTextLen limits the size of texts kept in memory per entry
const maxEntryTextLen = 1024

// LastResults keeps track of last N checks, thread-safe.
type LastResults struct {
	entries *ring.Ring
	size    int
	lock    sync.RWMutex
}

// NewLastResults creates new results tracker
func NewLastResults(size int) *LastResults {
	// minimum size is 1
	if size < 1 {
		size = 1
	}
	return &LastResults{
		entries: ring.New(size),
		size:    size,
	}
}

// Push adds new entry to the history, long texts are truncated
func (h *LastResults) Push(e Entry) {
	e.Request.Title = truncate(e.Request.Title, maxEntryTextLen)
	e.Request.Content = truncate(e.Request.Content, maxEntryTextLen)
	e.Request.URL = truncate(e.Request.URL, maxEntryTextLen)

	h.lock.Lock()
	defer h.lock.Unlock()

	h.entries.Value = e
	h.entries = h.entries.Next()
}

// Last returns up to n most recent entries in chronological order (oldest to newest)
func (h *LastResults) Last(n int) []Entry {
	if n < 1 {
		return []Entry{}
	}

	h.lock.RLock()
	defer h.lock.RUnlock()

	result := make([]Entry, 0, h.size)
	h.entries.Do(func(v any) {
		if e, ok := v.(Entry); ok {
			result = append(result, e)
		}
	})

	if len(result) > n {
		result = result[len(result)-n:]
	}
	return result
}

// Size returns the capacity of results history
func (h *LastResults) Size() int {
	return h.size
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
