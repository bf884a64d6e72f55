// Package cache stores scrape results keyed by search fingerprint.
//
// Cache is a byte store with three backends: an in-process LRU with lazy
// expiry, redis, and a disabled store that never hits. ResultCache sits
// on top and encodes job tables as JSON so every backend holds the same
// bytes.
//
// An entry older than its TTL is a miss and is removed on that read.
// The memory backend additionally implements Janitor so a periodic sweep
// can drop entries nobody reads again.
package cache
