package types

import "errors"

// Sentinel errors shared across packages. Callers match with errors.Is;
// wrapping sites add context with fmt.Errorf("%w: ...").
var (
	// ErrConfigMissing means a required credential or URL is not configured.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrStreamUnavailable means every resolution strategy was exhausted
	// without producing a usable stream URL.
	ErrStreamUnavailable = errors.New("stream unavailable")

	// ErrDownloadFailed means the audio payload could not be retrieved or
	// failed validation after retrieval.
	ErrDownloadFailed = errors.New("download failed")

	// ErrSessionExpired means the referenced search session no longer exists.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnauthorized means the acting user does not own the session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIndexOutOfRange means a track index falls outside the session's
	// result set.
	ErrIndexOutOfRange = errors.New("index out of range")
)
