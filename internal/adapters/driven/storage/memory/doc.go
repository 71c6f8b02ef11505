// Package memory provides in-memory implementations of the storage ports.
//
// The stores are safe for concurrent use and are used as test doubles and
// for ephemeral runs. Nothing is persisted.
package memory
