package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUnknownPlatform    = fmt.Errorf("unknown music platform")
	ErrUnknownFrequency   = fmt.Errorf("unknown sync frequency")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited by API")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Job and sync errors
	ErrJobNotFound       = fmt.Errorf("job not found")
	ErrJobNotRunnable    = fmt.Errorf("job is not in a runnable state")
	ErrSyncNotFound      = fmt.Errorf("sync config not found")
	ErrSyncInactive      = fmt.Errorf("sync config is not active")
	ErrSyncAlreadyExists = fmt.Errorf("an active sync config already exists for this job")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
