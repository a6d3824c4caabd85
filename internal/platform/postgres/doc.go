// Package postgres provides the PostgreSQL implementation of the store
// contracts defined in internal/store, together with the embedded goose
// migrations that create its schema. Dynamic queries are built with
// squirrel; errors are mapped onto the store sentinels by MapError.
package postgres
