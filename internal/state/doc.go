// Package state provides the durable string-keyed store that collections
// persist to, with file, redis, sqlite and in-memory backends.
package state

// Compile-time interface compliance checks.
var _ Backend = (*FileBackend)(nil)
var _ Backend = (*RedisBackend)(nil)
var _ Backend = (*SQLiteBackend)(nil)
var _ Backend = (*MemoryBackend)(nil)
