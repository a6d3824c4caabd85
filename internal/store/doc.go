// Package store defines the persistence contracts of the review engine.
// Services depend on these interfaces only; implementations live under
// internal/platform (postgres for production, memory for tests and local
// runs).
package store
