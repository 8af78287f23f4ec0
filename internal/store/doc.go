// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying storage mechanism away from
// the HTTP handlers and the background worker, so the application logic
// stays independent of the database technology in use.
package store
