package tracking

// SQLiteAvailable reports whether this build can persist user records
func SQLiteAvailable() bool {
	return sqliteAvailable
}
