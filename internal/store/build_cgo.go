//go:build cgo && !purego

package store

// Compiled for CGO builds. The mattn driver is the faster option and is what
// release binaries ship with.
//
//   CGO_ENABLED=1 go build ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
