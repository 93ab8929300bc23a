// Package cache provides the cache store contract, key derivation and value
// encoding used by the coherency manager in repositorycache.
//
// # Overview
//
// The package exports:
//
//   - Store: a byte-oriented key/value store with per-entry TTL
//   - KeyScanner and BatchDeleter: optional store capabilities used by
//     pattern deletes
//   - Key functions: deterministic keys for every cached resource
//   - Pattern: a compiled glob used to select keys for bulk deletion
//   - Codec: value encoding, MessagePack by default
//   - Config: TTL policy, key prefix, timeouts and backend selection
//
// # Keys
//
// Keys are built from colon separated segments and are stable across
// processes:
//
//	categories:all:<owner>              all categories of a user
//	categories:all:<owner>:<KIND>       categories of one kind
//	categories:id:<category>            one category
//	users:profile:<owner>               a user profile
//	users:email:<email>                 a user looked up by email
//	transactions:stats:<owner>:<digest> a statistics result
//
// The statistics digest is the xxhash64 of the key-sorted JSON document
// {currencyCode, dateFrom, dateTo, groupBy, type}, absent fields written as
// null and dates as UTC with millisecond precision. Two queries that differ
// only in field order or time zone share a digest.
//
// The manager prepends Config.KeyPrefix to every key before it reaches the
// store; the functions here never include it.
//
// # Patterns
//
// Patterns use '*' as the only wildcard. Every other character is literal,
// and a backslash escapes the character after it:
//
//	p := cache.CompilePattern(cache.StatisticsPattern(owner))
//	p.Match(cache.StatisticsKey(owner, params)) // true
//
// Use EscapePattern to embed arbitrary text in a pattern.
//
// # Backends
//
// NewStore builds either a sturdyc backed store or an xsync map. Both can
// enumerate keys, so pattern deletes against them are exact. Stores that
// cannot enumerate are still valid; pattern deletes against them become
// logged no-ops and entries age out through their TTL.
package cache
