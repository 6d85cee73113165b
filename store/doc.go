// Package store provides the in-tree implementations of core.Storage: an
// in-memory store for tests and single-process embedding, and a SQLite store
// for durable single-node deployments. Both honor the same queue ordering
// contract (priority descending, creation time ascending, id ascending) so a
// drain replays identically regardless of backend.
package store
