// Package chunker splits long text into bounded-size segments for synthesis.
package chunker

import "strings"

// Split divides text into segments of at most maxChars characters, breaking
// at sentence boundaries (. ! ? followed by whitespace) and falling back to
// word boundaries when a single sentence exceeds the limit. A single word
// longer than maxChars is emitted as its own segment and exceeds the bound.
func Split(text string, maxChars int) []string {
	var chunks []string
	current := ""

	for _, sentence := range sentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if len(current)+len(sentence)+1 > maxChars {
			if current != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}

			if len(sentence) > maxChars {
				// Sentence alone is over the limit, pack at word boundaries
				current = ""
				for _, word := range strings.Fields(sentence) {
					if len(current)+len(word)+1 > maxChars {
						if current != "" {
							chunks = append(chunks, strings.TrimSpace(current))
						}
						current = word
					} else {
						current = strings.TrimSpace(current + " " + word)
					}
				}
			} else {
				current = sentence
			}
		} else {
			if current != "" {
				current = current + " " + sentence
			} else {
				current = sentence
			}
		}
	}

	// Don't forget the last chunk
	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}

// Paragraphs groups text into paragraphs separated by blank lines. Used to
// structure the studio submission payload; there is no size bound here.
func Paragraphs(text string) []string {
	var (
		paragraphs []string
		current    []string
	)

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, strings.TrimSpace(line))
	}
	flush()

	return paragraphs
}

// sentences splits text after . ! ? when followed by whitespace, keeping the
// terminator with its sentence and consuming the whitespace run.
func sentences(text string) []string {
	var out []string

	start := 0
	i := 0
	for i < len(text) {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && i+1 < len(text) && isSpace(text[i+1]) {
			out = append(out, text[start:i+1])
			i++
			for i < len(text) && isSpace(text[i]) {
				i++
			}
			start = i
			continue
		}
		i++
	}

	if start < len(text) {
		out = append(out, text[start:])
	}

	return out
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
