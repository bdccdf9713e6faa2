package shortener

import (
	"context"
	"time"
)

// Code represents a short link code.
type Code string

// Link is a short code mapped to its target URL and expiry window.
// Links are immutable once stored.
type Link struct {
	Code        Code
	OriginalURL string
	ShortLink   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the link is past its expiry at the given instant.
// A link is still valid at exactly ExpiresAt.
func (l *Link) Expired(at time.Time) bool {
	return at.After(l.ExpiresAt)
}

// Repository stores links keyed by code.
type Repository interface {
	// Insert stores the link unless its code is already present, in which
	// case it returns ErrCodeTaken. Check and insert happen atomically.
	Insert(ctx context.Context, link *Link) error

	// GetByCode returns ErrNotFound when no link has the code.
	GetByCode(ctx context.Context, code Code) (*Link, error)
}
