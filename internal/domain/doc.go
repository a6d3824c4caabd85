// Package domain contains the core business entities of the review engine:
// items and their memory state, collections, review sessions, the grade log
// and per-user reminder profiles. It is independent of storage and transport.
package domain
