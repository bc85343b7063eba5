package store

import "strings"

// Operation tags for cache keys. Each query shape gets its own tag so
// distinct queries never collide.
const (
	OpSearch         = "search"
	OpVersions       = "versions"
	OpMetadata       = "metadata"
	OpLatestMetadata = "latest-metadata"
)

// Key builds a deterministic cache key from an operation tag, a subject
// (package id or search term) and the parameters that affect the
// result. The subject is lower-cased so call-site casing never produces
// distinct keys for the same logical query.
//
//	Key(OpVersions, "Newtonsoft.Json")            -> "versions:newtonsoft.json"
//	Key(OpSearch, "json", "true", "0", "20")      -> "search:json:true:0:20"
func Key(op, subject string, params ...string) string {
	parts := make([]string, 0, 2+len(params))
	parts = append(parts, op, strings.ToLower(strings.TrimSpace(subject)))
	parts = append(parts, params...)
	return strings.Join(parts, ":")
}
