// Package model defines the session history entities shared by storage, export and the
// history manager.
//
// Invariants:
// - A SessionSummary is always derived from a PersistedSession via Summary and never
//   stored independently.
// - Tags are trimmed, non-empty, unique case-insensitively and kept sorted.
// - All timestamps are UTC.
package model
