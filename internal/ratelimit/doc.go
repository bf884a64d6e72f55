// Package ratelimit admits or rejects requests per client identity.
//
// The limiter keeps, per client, the timestamps of admitted requests inside
// a trailing window of fixed length. A request is admitted while fewer than
// the configured number of timestamps remain in the window; otherwise it is
// rejected with the time until the oldest one leaves.
//
// Two stores are provided: SlidingWindowLimiter in process memory, and
// RedisLimiter which runs the same algorithm in a Lua script so replicas
// share one budget. A Janitor removes idle clients on a cron schedule.
package ratelimit
