//go:build !cgo

package tracking

// go-sqlite3 compiles to a stub without cgo; NewLocalStore reports ErrCgoDisabled instead
const sqliteAvailable = false
