// Package retry provides bounded retry with backoff for transient failures,
// used by the HTTP probe backend when the mirror misbehaves.
//
// Retryability is decided through the error types in storyfetch/pkg/errors:
// network failures retry, invalid input and parse failures do not.
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		return probe.fetch(ctx)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//	}
//	err := retry.Do(operation, cfg)
package retry
