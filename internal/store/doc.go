// Package store defines the persistence contracts consumed by the pipeline
// and shared database plumbing (DBTX, transactions, error types). Concrete
// implementations live in internal/platform/postgres and
// internal/store/memstore.
package store
