package models

import (
	"time"

	"github.com/Varun5711/shortbox/internal/expiry"
)

// Kind names one of the three short-code namespaces.
type Kind string

const (
	KindRedirect Kind = "redirect"
	KindList     Kind = "list"
	KindClip     Kind = "clip"
)

func (k Kind) String() string {
	return string(k)
}

// PathPrefix returns the URL segment that precedes a code of this kind.
func (k Kind) PathPrefix() string {
	switch k {
	case KindList:
		return "list/"
	case KindClip:
		return "clip/"
	default:
		return ""
	}
}

type RedirectEntry struct {
	ID              int64      `json:"id"`
	OriginalURL     string     `json:"original_url"`
	ShortCode       string     `json:"short_code"`
	CustomShortCode *string    `json:"custom_short_code,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"` // nil means never
	QRCodePath      string     `json:"qr_code_path,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (e *RedirectEntry) IsActive(now time.Time) bool {
	return !expiry.IsExpired(e.ExpiresAt, now)
}

type LinkList struct {
	ID         int64          `json:"id"`
	ShortCode  string         `json:"short_code"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	QRCodePath string         `json:"qr_code_path,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Items      []LinkListItem `json:"items"`
}

func (l *LinkList) IsActive(now time.Time) bool {
	return !expiry.IsExpired(l.ExpiresAt, now)
}

type LinkListItem struct {
	ID          int64  `json:"id"`
	ListID      int64  `json:"list_id"`
	Position    int    `json:"position"`
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type ClipboardEntry struct {
	ID         int64      `json:"id"`
	Content    string     `json:"content"`
	ShortCode  string     `json:"short_code"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	QRCodePath string     `json:"qr_code_path,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (c *ClipboardEntry) IsActive(now time.Time) bool {
	return !expiry.IsExpired(c.ExpiresAt, now)
}
