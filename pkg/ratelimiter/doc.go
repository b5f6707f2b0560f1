// Package ratelimiter provides an in-memory, keyed token bucket rate limiter.
//
// # Token Bucket Algorithm
//
// Each key owns a bucket holding up to Capacity tokens. Every RefillInterval
// the bucket gains RefillRate tokens, never exceeding Capacity. Allow consumes
// one token and reports false when the bucket is empty. Bursts up to Capacity
// are admitted; the sustained rate is RefillRate per RefillInterval.
//
// # Usage
//
//	limiter, err := ratelimiter.New(ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     5,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	// Remove buckets of keys that went quiet
//	g.Go(limiter.Run(ctx))
//
//	if !limiter.Allow(host) {
//		// drop or reject
//	}
//
// # Cleanup
//
// Buckets not touched for StaleAfter are removed by the cleanup loop started
// with Start or Run. Without it, buckets live until Forget is called.
package ratelimiter
