// ABOUTME: Audiobook loader turning a local text file into a narration round
// ABOUTME: Strips Project Gutenberg boilerplate and splits on blank lines
package affirm

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadBook reads a plain-text book and returns one narration utterance per paragraph
func LoadBook(path, voice string) (Round, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Round{}, fmt.Errorf("failed to read book: %w", err)
	}

	paragraphs := Paragraphs(StripGutenberg(string(data)))
	if len(paragraphs) == 0 {
		return Round{}, fmt.Errorf("book %s has no text", path)
	}

	round := Round{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	for _, p := range paragraphs {
		round.Utterances = append(round.Utterances, Utterance{Voice: voice, Text: p, Role: Narration})
	}
	return round, nil
}

// StripGutenberg keeps only the text between the "*** START OF" and "*** END OF"
// markers when present
func StripGutenberg(text string) string {
	if i := strings.Index(text, "*** START OF"); i >= 0 {
		if nl := strings.Index(text[i:], "\n"); nl >= 0 {
			text = text[i+nl+1:]
		}
	}
	if i := strings.Index(text, "*** END OF"); i >= 0 {
		text = text[:i]
	}
	return text
}

// Paragraphs splits text on blank lines and joins wrapped lines with spaces
func Paragraphs(text string) []string {
	var (
		out     []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
		}
	}

	scanner := bufio.NewScanner(bytes.NewBufferString(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return out
}
