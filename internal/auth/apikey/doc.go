// Package apikey authenticates search requests by a shared API key.
//
// Keys come from API_KEYS and the legacy API_KEY setting. An entry may be the
// key itself, a "sha256:<hex>" digest or a bcrypt hash. Every presented key
// is compared against all plain and digest entries in constant time.
package apikey
