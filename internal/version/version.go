package version

import (
	"fmt"
	"io"
	"os"

	"github.com/alvarorichard/kaistream/internal/tracking"
)

const (
	Version = "1.0.0"
)

func HasVersionArg() bool {
	if len(os.Args) > 1 {
		arg := os.Args[1]
		return arg == "--version" || arg == "-version" || arg == "-v" || arg == "--v" || arg == "version"
	}
	return false
}

// String returns the version line printed by both binaries
func String(program string) string {
	s := fmt.Sprintf("%s v%s", program, Version)
	if tracking.SQLiteAvailable() {
		return s + " (with SQLite user store)"
	}
	return s + " (without SQLite user store)"
}

func ShowVersion(w io.Writer, program string) {
	_, _ = fmt.Fprintln(w, String(program))
}
