package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and Options.CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrMissingRunID is returned when saving a report without an ID.
	ErrMissingRunID = errors.New("report has no run ID")
)
