// Package services implements music platform API clients behind the [Service] interface.
//
// # Platform Clients
//
// [SpotifyService] is the reference implementation: OAuth2 authorization code
// flow via [golang.org/x/oauth2], bearer-token requests against the Web API,
// transparent pagination for playlist and library listings, and playlist
// mutation (create, add, remove) in chunks of 100 tracks.
//
// # Rate Limiting & Retry
//
// Every API call waits on a shared [golang.org/x/time/rate.Limiter] before
// dispatch. Transient failures (429, 5xx, transport errors) are retried a
// bounded number of times with exponential backoff and jitter; 429 responses
// honor the Retry-After header. The sleep function is injectable so retry
// behavior is testable without wall-clock delays.
//
// # Adding Platforms
//
// [NewService] selects an implementation by platform identifier. New
// platforms implement [Service] and register in the factory; the cleanup
// engine and matcher never reference a concrete client.
package services
