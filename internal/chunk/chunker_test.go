package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EmptyContent(t *testing.T) {
	c := New(512)

	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("   \n\t\n  "))
}

func TestChunk_SmallNoteSingleChunk(t *testing.T) {
	c := New(512)

	chunks := c.Chunk("# Title\n\nA short note about gardening.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "# Title\n\nA short note about gardening.", chunks[0])
}

func TestChunk_SplitsOnHeadings(t *testing.T) {
	c := New(64)

	text := "# First\n\nContent of the first section here.\n\n" +
		"## Second\n\nContent of the second section here."
	chunks := c.Chunk(text)

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0], "# First"))
	assert.True(t, strings.HasPrefix(chunks[1], "## Second"))
}

func TestChunk_SizeBound(t *testing.T) {
	c := New(100)

	// Build a note with varied paragraph lengths
	var b strings.Builder
	b.WriteString("# Notes\n\n")
	for i := 0; i < 20; i++ {
		b.WriteString(strings.Repeat("word ", 10))
		b.WriteString("\n\n")
	}

	chunks := c.Chunk(b.String())
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch), 100, "chunk %d over budget", i)
		assert.NotEmpty(t, strings.TrimSpace(ch), "chunk %d empty", i)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := New(128)
	text := "# A\n\npara one\n\npara two\n\n## B\n\n" + strings.Repeat("x ", 200)

	first := c.Chunk(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Chunk(text))
	}
}

func TestChunk_CodeBlockStaysAtomic(t *testing.T) {
	c := New(120)

	code := "```go\nfunc main() {\n\n\tprintln(\"hi\")\n}\n```"
	text := "# Code\n\nintro paragraph\n\n" + code + "\n\nclosing paragraph\n\n" +
		strings.Repeat("filler ", 30)

	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)

	// The fence, including its internal blank line, lands in one chunk
	var found bool
	for _, ch := range chunks {
		if strings.Contains(ch, code) {
			found = true
		}
	}
	assert.True(t, found, "code block was split across chunks")
}

func TestChunk_HeadingInsideCodeBlockIgnored(t *testing.T) {
	c := New(512)

	text := "# Real heading\n\n```\n# not a heading\n```\n\ntail"
	chunks := c.Chunk(text)
	require.Len(t, chunks, 1)
}

func TestChunk_OversizedParagraphWrappedAtSpaces(t *testing.T) {
	c := New(50)

	text := strings.Repeat("alpha beta gamma ", 20)
	chunks := c.Chunk(text)

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch), 50)
		// Cut at spaces, so no chunk starts or ends mid-word
		assert.False(t, strings.HasPrefix(ch, " "))
		assert.False(t, strings.HasSuffix(ch, " "))
	}
	// Nothing lost except the separators
	joined := strings.Join(chunks, " ")
	assert.Equal(t, strings.TrimSpace(text), joined)
}

func TestChunk_UnbreakableRunSplitMidToken(t *testing.T) {
	c := New(40)

	text := strings.Repeat("a", 100)
	chunks := c.Chunk(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, 40, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 40, utf8.RuneCountInString(chunks[1]))
	assert.Equal(t, 20, utf8.RuneCountInString(chunks[2]))
}

func TestChunk_RuneMeasuredNotByteMeasured(t *testing.T) {
	c := New(30)

	// Multibyte runes: 60 runes is 180 bytes
	text := strings.Repeat("日", 60)
	chunks := c.Chunk(text)

	require.Len(t, chunks, 2)
	for _, ch := range chunks {
		assert.Equal(t, 30, utf8.RuneCountInString(ch))
	}
}

func TestChunk_ContentBeforeFirstHeading(t *testing.T) {
	c := New(512)

	text := "preamble before any heading\n\n# First\n\nbody"
	chunks := c.Chunk(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "preamble before any heading", chunks[0])
	assert.Equal(t, "# First\n\nbody", chunks[1])
}

func TestNew_InvalidSizeFallsBack(t *testing.T) {
	assert.Equal(t, DefaultSize, New(0).Size)
	assert.Equal(t, DefaultSize, New(-1).Size)
	assert.Equal(t, 256, New(256).Size)
}
