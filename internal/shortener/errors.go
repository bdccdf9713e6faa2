package shortener

import "errors"

var (
	// ErrValidation is returned when the caller's input is missing or malformed.
	ErrValidation = errors.New("invalid input")
	// ErrCollision is returned when a requested short code is already taken.
	ErrCollision = errors.New("short code already exists")
	// ErrNotFound is returned when no link exists for a code.
	ErrNotFound = errors.New("short code not found")
	// ErrExpired is returned when a link exists but its validity window has passed.
	ErrExpired = errors.New("short link has expired")

	// ErrCodeTaken is returned by a Repository when inserting a code that is present.
	ErrCodeTaken = errors.New("code already stored")
	// ErrCodeSpaceExhausted is returned when no free code was found within the attempt budget.
	ErrCodeSpaceExhausted = errors.New("no free short code available")
)
