//go:build ignore

// Generates a synthetic Obsidian vault for load testing the indexer.
// Usage: go run scripts/generate-test-vault.go -notes 500 -output testdata/vault
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numNotes  = flag.Int("notes", 500, "Number of notes to generate")
	outputDir = flag.String("output", "testdata/vault", "Output vault directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var folders = []string{
	"", "Daily Notes", "Projects", "Projects/Archive", "Reading", "Work",
}

var topics = []string{
	"kubernetes cluster maintenance",
	"sourdough bread baking",
	"quarterly planning review",
	"go concurrency patterns",
	"home network setup",
	"book notes and highlights",
	"travel itinerary drafts",
	"meeting follow-ups",
}

var sentences = []string{
	"The main takeaway from today was that small iterations beat big rewrites.",
	"Need to follow up with the team about the open questions from last week.",
	"This approach worked better than expected once the edge cases were handled.",
	"Key resources are linked below for future reference.",
	"The second attempt went much smoother after adjusting the initial plan.",
	"Remember to double check the assumptions before committing to the schedule.",
	"A few ideas worth exploring further when there is more time.",
	"The results so far suggest the simpler option is the right one.",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	for _, folder := range folders {
		if err := os.MkdirAll(filepath.Join(*outputDir, folder), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
			os.Exit(1)
		}
	}

	for i := 0; i < *numNotes; i++ {
		folder := folders[rng.Intn(len(folders))]
		topic := topics[rng.Intn(len(topics))]
		name := fmt.Sprintf("note-%04d.md", i)
		path := filepath.Join(*outputDir, folder, name)

		if err := os.WriteFile(path, []byte(generateNote(rng, topic)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d notes in %s\n", *numNotes, *outputDir)
}

func generateNote(rng *rand.Rand, topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Notes on %s\n\n", topic)

	sections := 1 + rng.Intn(4)
	for s := 0; s < sections; s++ {
		if s > 0 {
			fmt.Fprintf(&b, "## Section %d\n\n", s)
		}
		paragraphs := 1 + rng.Intn(3)
		for p := 0; p < paragraphs; p++ {
			count := 2 + rng.Intn(4)
			for i := 0; i < count; i++ {
				b.WriteString(sentences[rng.Intn(len(sentences))])
				b.WriteString(" ")
			}
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
