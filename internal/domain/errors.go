package domain

import "errors"

// Validation errors. They are returned to the caller as is and never retried.
var (
	ErrInvalidID             = errors.New("invalid id")
	ErrHubNotConfigured      = errors.New("hub channel not configured")
	ErrUnknownChannel        = errors.New("unknown channel")
	ErrUnknownCategory       = errors.New("unknown category")
	ErrRoomNotFound          = errors.New("room not found")
	ErrCannotDenyOwner       = errors.New("room owner cannot be denied")
	ErrCustomizationDisabled = errors.New("customization disabled for this guild")
	ErrInvalidConfig         = errors.New("invalid voice config")
	ErrRateLimited           = errors.New("room creation rate limited")
)
