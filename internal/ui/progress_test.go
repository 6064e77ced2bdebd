package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressVerbosePipedOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)

	p.Update(1, 3, "notes/a.md")
	p.Update(2, 3, "notes/b.md")
	p.Finish()

	out := buf.String()
	assert.Contains(t, out, "[1/3] notes/a.md")
	assert.Contains(t, out, "[2/3] notes/b.md")
	assert.NotContains(t, out, "\r")
}

func TestProgressQuietPipedOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, false)

	p.Update(1, 2, "a.md")
	p.Finish()

	assert.Empty(t, buf.String())
}

func TestProgressWarn(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, false)

	p.Warn("bad.md", errors.New("embedding failed"))

	assert.Contains(t, buf.String(), "WARN: bad.md: embedding failed")
}

func TestIsTerminalFalseForBuffer(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestTruncateLabel(t *testing.T) {
	short := "notes/a.md"
	assert.Equal(t, short, truncateLabel(short))

	long := strings.Repeat("folder/", 20) + "note.md"
	got := truncateLabel(long)
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.Len(t, []rune(got), maxLabelRunes+3)
	assert.True(t, strings.HasSuffix(got, "note.md"))
}
