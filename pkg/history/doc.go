// Package history is the entry point the rest of the application uses to work with saved
// sessions. A Manager composes the storage engine with the export codec and adds cost and
// usage aggregates. One Manager is shared per process; see Shared.
package history
