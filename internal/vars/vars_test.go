package vars

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommitShort(t *testing.T) {
	prev := Commit
	t.Cleanup(func() { Commit = prev })

	Commit = "da15c174cd2ada1ad247906536c101e8f6799def"
	assert.Equal(t, "da15c17", CommitShort())

	Commit = "abc"
	assert.Equal(t, "abc", CommitShort())
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf, "gsquery")

	out := buf.String()
	assert.Contains(t, out, "name:     GSQuery\n")
	assert.Contains(t, out, "file:     gsquery\n")
	assert.Contains(t, out, "license:  AGPL-3.0\n")
	assert.Contains(t, out, "built:    1970-01-01T00:00:00Z\n")
}
