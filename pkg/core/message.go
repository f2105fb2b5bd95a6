package core

import "time"

// Message is a single chat message as served by the upstream API.
// Values are never modified after they are decoded.
type Message struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Snapshot sources.
const (
	SourceEmpty    = "empty"
	SourceFallback = "fallback"
	SourceUpstream = "upstream"
)

// Snapshot is one complete, immutable version of the dataset. Messages keep
// the order in which they were read (file order or upstream fetch order).
type Snapshot struct {
	Messages    []Message
	Source      string
	InstalledAt time.Time
}

// NewSnapshot wraps messages in a snapshot stamped with the current time.
func NewSnapshot(messages []Message, source string) *Snapshot {
	if messages == nil {
		messages = []Message{}
	}
	return &Snapshot{
		Messages:    messages,
		Source:      source,
		InstalledAt: time.Now().UTC(),
	}
}

// EmptySnapshot returns a snapshot with no messages.
func EmptySnapshot() *Snapshot {
	return NewSnapshot(nil, SourceEmpty)
}

// Len returns the number of messages in the snapshot. A nil snapshot is empty.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Messages)
}

// Page is one page of search results.
type Page struct {
	Query    string    `json:"query"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
	Items    []Message `json:"items"`
}
