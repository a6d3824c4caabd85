// Package testutils provides shared helpers for tests: a controllable clock,
// seeded in-memory stores, a capturing slog handler and JWT headers.
//
// Helper functions follow these naming conventions:
//   - New*: build entities in memory without persisting them
//   - MustInsert*: persist entities and fail the test on error
package testutils
