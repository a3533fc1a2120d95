package model

import "errors"

var (
	// ErrNotFound is returned when an artifact id is not present in its collection.
	ErrNotFound = errors.New("artifact not found")

	// ErrConfirmationDeclined is returned when a destructive operation was not confirmed.
	ErrConfirmationDeclined = errors.New("confirmation declined")

	// ErrInvalidInput marks client-side validation failures (missing required field etc.).
	ErrInvalidInput = errors.New("invalid input")

	// ErrFavoritesUnsupported is returned by collections whose entries cannot be favorited.
	ErrFavoritesUnsupported = errors.New("collection does not support favorites")

	// ErrQuotaExceeded is returned when a write exceeds the storage quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnreadable is returned by writes when the stored collection cannot be
	// read or parsed. The stored value is left untouched.
	ErrUnreadable = errors.New("stored collection unreadable")
)
