// Package mocks provides hand-written mock implementations of the store
// contracts for tests that need to script specific failures. Tests that
// only need working storage should prefer the memstore package.
package mocks
