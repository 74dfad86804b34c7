package dto

import "time"

// GenerateRequest payload for issuing a new QR code.
type GenerateRequest struct {
	Data string `json:"data" form:"data"`
}

// QRCodeResponse is one history entry in the dashboard listing.
type QRCodeResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
