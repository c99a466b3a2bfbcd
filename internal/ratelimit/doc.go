// Package ratelimit is per-IP token-bucket rate limiting with background
// eviction of idle entries.
//
// The limiter runs as a pipeline stage whose Before refuses the request
// with ErrRateLimited, which the transport answers with 429.
//
// It is single-instance and in memory. It blunts one address flooding
// the process and counts who was refused; it does nothing against
// distributed sources or against bandwidth already accepted by the time
// it runs. Pair it with upstream filtering.
package ratelimit
