package models

import "errors"

var (
	// ErrDuplicateIdentity is returned when a username or provider id is already taken.
	ErrDuplicateIdentity = errors.New("identity already exists")
	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound is returned when a user, post or comment lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrAuthFailure is returned when a federated provider rejects or cannot verify a login.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrUnknownProvider is returned for a provider name the site does not support.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrStoreUnavailable tags unexpected backing store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)
