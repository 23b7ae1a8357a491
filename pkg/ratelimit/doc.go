// Package ratelimit provides request throttling for the scrape backends.
//
// The token bucket has a fixed capacity that refills after a configured
// period, which suits the probe's pattern of short bursts against the
// mirror followed by quiet stretches.
//
// All limiters implement the Limiter interface:
//   - Allow() bool - Check if a request is allowed
//   - Wait() - Block until a request is allowed
//   - Reset() - Reset the limiter state
//
// Usage:
//
//	// 30 requests per minute
//	limiter := ratelimit.NewTokenBucket(30, time.Minute)
//
//	if !limiter.Allow() {
//	    limiter.Wait()
//	}
//	// Proceed with request
package ratelimit
