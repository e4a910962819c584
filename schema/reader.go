package schema

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Line is one directive line with comments and surrounding whitespace
// removed.
type Line struct {
	File string
	No   int
	Text string
}

// ReadLines returns the non empty directive lines of r. A block comment
// spanning several lines joins the text before and after it into one line.
func ReadLines(file string, r io.Reader) ([]Line, error) {
	var (
		out     []Line
		pending strings.Builder
		start   int
		inBlock bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	no := 0
	for scanner.Scan() {
		no++
		text := scanner.Text()

		if !inBlock {
			start = no
			pending.Reset()
		}

		for len(text) > 0 {
			if inBlock {
				end := strings.Index(text, "*/")
				if end < 0 {
					text = ""
					break
				}

				text = text[end+2:]
				inBlock = false
				continue
			}

			cut := commentStart(text)
			if cut < 0 {
				pending.WriteString(text)
				break
			}

			pending.WriteString(text[:cut])

			if strings.HasPrefix(text[cut:], "/*") {
				text = text[cut+2:]
				inBlock = true
				continue
			}

			// line comment
			break
		}

		if inBlock {
			continue
		}

		if line := strings.TrimSpace(pending.String()); line != "" {
			out = append(out, Line{File: file, No: start, Text: line})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Failed to read %s: %w", file, err)
	}

	if inBlock {
		return nil, lineErr(Line{File: file, No: start}, ErrUnterminatedComment)
	}

	return out, nil
}

// commentStart returns the index of the first comment opener in text.
func commentStart(text string) int {
	best := -1

	for _, opener := range []string{"#", "//", "/*"} {
		if i := strings.Index(text, opener); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}

	return best
}
