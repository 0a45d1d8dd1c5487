package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrAuthFailed indicates the access token was rejected by the service
	ErrAuthFailed = errors.New("access token is invalid")

	// ErrInvalidCredentials indicates a login or registration attempt was rejected
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrServerOffline indicates the recommendation service is unreachable
	ErrServerOffline = errors.New("recommendation service is unreachable")

	// ErrItemNotFound indicates the requested catalog item does not exist
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrStoreUnavailable indicates the local credential store cannot be opened
	ErrStoreUnavailable = errors.New("credential store is unavailable")
)
