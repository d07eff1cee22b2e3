// Package storage persists sessions durably and keeps an in-memory summary index in step with
// the durable store.
//
// Every mutation writes the durable record first and only then publishes a new index
// snapshot, so a failed write never leaves the index describing data that is not on disk.
// Readers see immutable snapshots and never block on writers.
//
// Two backends are provided: FileBackend stores one JSON document per session in a
// directory, SQLiteBackend stores the same documents as rows of a single table.
package storage
