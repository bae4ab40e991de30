//go:build sqlite_vec && cgo

package sqlitestore

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers the sqlite-vec extension as auto-loadable with the
	// mattn/go-sqlite3 driver, letting blob columns back vector
	// similarity search for future embedding-backed source lookups.
	vec.Auto()
}
