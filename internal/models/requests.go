package models

import "time"

type ShortenURLRequest struct {
	URL             string `json:"url" validate:"required,max=2048,http_url"`
	CustomShortCode string `json:"custom_short_code,omitempty" validate:"omitempty,max=50"`
	Expiration      string `json:"expiration" validate:"required,oneof=1h 1d 1w 1m 1y lifetime"`
}

type LinkListItemInput struct {
	URL         string `json:"url" validate:"required,max=2048,http_url"`
	Title       string `json:"title,omitempty" validate:"max=200"`
	Description string `json:"description,omitempty" validate:"max=1000"`
}

type CreateLinkListRequest struct {
	Items      []LinkListItemInput `json:"items" validate:"required,min=1,max=100,dive"`
	Expiration string              `json:"expiration" validate:"required,oneof=1h 1d 1w 1m 1y lifetime"`
}

type CreateClipRequest struct {
	Content    string `json:"content" validate:"required"`
	Expiration string `json:"expiration" validate:"required,oneof=1h 1d 1w 1m 1y lifetime"`
}

// CreatedResponse describes any newly created entry.
type CreatedResponse struct {
	Kind       Kind       `json:"kind"`
	ShortCode  string     `json:"short_code"`
	ShortURL   string     `json:"short_url"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	QRCodePath string     `json:"qr_code_path,omitempty"`
	QRCode     string     `json:"qr_code,omitempty"`
	Attempts   int        `json:"attempts,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}
