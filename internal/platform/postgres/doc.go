// Package postgres provides PostgreSQL implementations of the store
// contracts. Stores accept a store.DBTX so they work against either a
// connection pool or a transaction; driver errors are mapped onto store
// sentinel errors and never leak pg error codes to callers.
package postgres
