//go:build !cgo || purego

package store

// Compiled when CGO is off or the purego tag is set. The modernc driver
// needs no C compiler, at the cost of slower I/O.
//
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
