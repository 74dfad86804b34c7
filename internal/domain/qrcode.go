package domain

import "time"

// QRCode is one generated artifact: the source text plus its durable record.
// Rows are immutable after insert; the encoded image is re-derivable from
// Content and is not stored.
type QRCode struct {
	ID        int64
	UserID    string
	Content   string
	CreatedAt time.Time
}
