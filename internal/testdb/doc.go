//go:build integration

// Package testdb opens the integration test database and isolates each
// test in a transaction that is rolled back when the test ends.
//
// Tests are skipped when neither DATABASE_URL nor SCRY_TEST_DB_URL is set.
package testdb
