// Package storage persists the only durable cross-invocation state:
//   - rotation state (the index of the next scheduled topic)
//   - quote history (append-only log of quotes already rendered)
//
// A single running instance is assumed; no locking is provided.
package storage
