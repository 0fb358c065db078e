package persistence

import "time"

// ReportEntry is the archived form of a moderation report.
type ReportEntry struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	AuthorID  string    `json:"author_id"`
	ChannelID string    `json:"channel_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Summary   string    `json:"summary"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}
