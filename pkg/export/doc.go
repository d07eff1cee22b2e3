// Package export renders persisted sessions as markdown, JSON or plain text and derives
// filesystem-safe filenames for them.
//
// Every function is pure: inputs are never mutated and nothing touches storage.
package export
