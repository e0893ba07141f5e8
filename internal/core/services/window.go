package services

import "github.com/custodia-labs/docchat/internal/core/domain"

// WindowPageSize is how many messages one "load more" reveals.
const WindowPageSize = 10

// SessionWindow is a progressively growing view over the tail of a transcript.
// The visible part is always a contiguous suffix of the full sequence.
// A SessionWindow is not safe for concurrent use.
type SessionWindow struct {
	all  []domain.ChatMessage
	size int
}

// NewSessionWindow opens a window showing the most recent page of all.
func NewSessionWindow(all []domain.ChatMessage) *SessionWindow {
	msgs := make([]domain.ChatMessage, len(all))
	copy(msgs, all)
	return &SessionWindow{
		all:  msgs,
		size: min(WindowPageSize, len(msgs)),
	}
}

// Visible returns the most recent Size() messages, oldest first.
func (w *SessionWindow) Visible() []domain.ChatMessage {
	start := len(w.all) - w.size
	return w.all[start:len(w.all):len(w.all)]
}

// HasMore reports whether older messages are hidden.
func (w *SessionWindow) HasMore() bool {
	return w.size < len(w.all)
}

// LoadMore reveals up to one more page of older messages.
func (w *SessionWindow) LoadMore() {
	w.size = min(w.size+WindowPageSize, len(w.all))
}

// AppendLive adds a newly arrived message. If the whole transcript was
// visible the window grows to include it; otherwise the view stays put.
func (w *SessionWindow) AppendLive(msg domain.ChatMessage) {
	wasAtEnd := w.size == len(w.all)
	w.all = append(w.all, msg)
	if wasAtEnd {
		w.size++
	}
}

// Size is the number of visible messages.
func (w *SessionWindow) Size() int {
	return w.size
}

// Len is the total number of messages.
func (w *SessionWindow) Len() int {
	return len(w.all)
}
