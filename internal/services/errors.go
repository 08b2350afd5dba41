package services

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedSnapshotVersion is returned for snapshots written by a newer build.
	ErrUnsupportedSnapshotVersion = errors.New("snapshot schema version is newer than supported")
	// ErrSnapshotConflict is returned when the snapshot changed since it was read.
	ErrSnapshotConflict = errors.New("snapshot was modified concurrently")
)
