// Package auth provides API key authentication for the proxy's
// completion endpoints.
//
// Keys are accepted from the Authorization header ("Bearer <key>") or
// the X-Api-Key header, matching the conventions of the two dialects
// the proxy speaks. Validation hashes keys with SHA-256 and compares
// digests in constant time.
//
// Administrative routes (health, readiness, metrics) are wired without
// this middleware so probes keep working when keys rotate.
package auth
