// Package chunk splits markdown note content into bounded text chunks
// for embedding. Chunking is pure and deterministic: the same input and
// size always produce the same chunks.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSize is the default maximum chunk length in runes.
const DefaultSize = 512

// Chunker splits markdown text into chunks of at most Size runes.
//
// Structure is preserved where possible: heading sections are kept
// together when they fit, oversized sections are split on paragraph
// boundaries, and fenced code blocks are never split across a
// paragraph boundary. A single run of text longer than Size with no
// line or space boundary is split mid-token.
type Chunker struct {
	Size int
}

// New creates a Chunker. A non-positive size falls back to DefaultSize.
func New(size int) Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	return Chunker{Size: size}
}

// Matches ATX headings: # Title through ###### Title
var headingPattern = regexp.MustCompile(`^#{1,6}\s`)

// Chunk splits markdown content into chunks.
// Empty or whitespace-only content returns nil.
// Every returned chunk is non-empty, trimmed, and at most Size runes.
func (c Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	for _, sec := range splitSections(text) {
		sec = strings.TrimSpace(sec)
		if sec == "" {
			continue
		}
		if utf8.RuneCountInString(sec) <= c.Size {
			chunks = append(chunks, sec)
			continue
		}
		chunks = append(chunks, c.packBlocks(splitBlocks(sec))...)
	}
	return chunks
}

// splitSections splits content into heading-delimited sections. Each
// section starts at a heading line and runs to the next heading.
// Content before the first heading forms its own section. Heading
// markers inside fenced code blocks are ignored.
func splitSections(text string) []string {
	lines := strings.Split(text, "\n")

	var sections []string
	var cur []string
	inFence := false

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence && headingPattern.MatchString(line) && len(cur) > 0 {
			sections = append(sections, strings.Join(cur, "\n"))
			cur = nil
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		sections = append(sections, strings.Join(cur, "\n"))
	}
	return sections
}

// splitBlocks splits a section into paragraph blocks on blank lines.
// Blank lines inside fenced code blocks do not end a block, so a
// fence always stays in one piece.
func splitBlocks(section string) []string {
	lines := strings.Split(section, "\n")

	var blocks []string
	var cur []string
	inFence := false

	flush := func() {
		b := strings.TrimSpace(strings.Join(cur, "\n"))
		if b != "" {
			blocks = append(blocks, b)
		}
		cur = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence && strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// packBlocks greedily joins blocks into chunks of at most Size runes,
// separated by blank lines. A block that alone exceeds Size is
// hard-wrapped.
func (c Chunker) packBlocks(blocks []string) []string {
	var out []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, b := range blocks {
		blockLen := utf8.RuneCountInString(b)
		if blockLen > c.Size {
			flush()
			out = append(out, c.hardWrap(b)...)
			continue
		}

		sep := 0
		if curLen > 0 {
			sep = 2 // "\n\n"
		}
		if curLen+sep+blockLen > c.Size {
			flush()
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(b)
		curLen += blockLen
	}
	flush()
	return out
}

// hardWrap splits a single oversized block. The cut point is the last
// newline within budget, falling back to the last space, falling back
// to a mid-token cut when no boundary exists.
func (c Chunker) hardWrap(block string) []string {
	runes := []rune(block)
	var out []string

	emit := func(rs []rune) {
		if p := strings.TrimSpace(string(rs)); p != "" {
			out = append(out, p)
		}
	}

	for len(runes) > 0 {
		if len(runes) <= c.Size {
			emit(runes)
			break
		}

		cut := -1
		for i := c.Size; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		if cut == -1 {
			for i := c.Size; i > 0; i-- {
				if runes[i] == ' ' {
					cut = i
					break
				}
			}
		}
		if cut == -1 {
			// No boundary under budget; split mid-token
			emit(runes[:c.Size])
			runes = runes[c.Size:]
			continue
		}
		emit(runes[:cut])
		runes = runes[cut+1:]
	}
	return out
}
