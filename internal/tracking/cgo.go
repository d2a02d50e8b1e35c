//go:build cgo

package tracking

const sqliteAvailable = true
