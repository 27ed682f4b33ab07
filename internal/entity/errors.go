package entity

import "errors"

var (
	// ErrNotFound is returned when an identifier does not resolve to any post.
	ErrNotFound = errors.New("post not found")

	// ErrPending is returned for posts that exist but are not published yet.
	ErrPending = errors.New("post is pending")

	// ErrServiceUnavailable wraps transient failures of the content service.
	ErrServiceUnavailable = errors.New("content service unavailable")
)
