package version

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShowVersion(t *testing.T) {
	var buf bytes.Buffer
	ShowVersion(&buf, "kaistream")

	assert.Contains(t, buf.String(), "kaistream v"+Version)
	assert.Contains(t, buf.String(), "SQLite user store")
}

func TestHasVersionArg(t *testing.T) {
	saved := os.Args
	defer func() { os.Args = saved }()

	os.Args = []string{"kaistream", "--version"}
	assert.True(t, HasVersionArg())

	os.Args = []string{"kaistream", "naruto"}
	assert.False(t, HasVersionArg())

	os.Args = []string{"kaistream"}
	assert.False(t, HasVersionArg())
}
