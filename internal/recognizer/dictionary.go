package recognizer

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Charset maps CTC class indices to tokens. Class 0 is the CTC blank, so
// token i is emitted for class i+1.
type Charset struct {
	Tokens       []string
	TokenToIndex map[string]int
}

// LoadCharset loads a dictionary file where each non-empty line is a token.
// Leading/trailing whitespace is trimmed. UTF-8 BOM is removed if present.
func LoadCharset(path string) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: Opening user-provided dictionary file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Error closing dictionary file", "path", path, "error", err)
		}
	}()

	scanner := bufio.NewScanner(f)
	tokens := make([]string, 0, 4096)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return NewCharset(tokens), nil
}

// NewCharset builds a Charset from tokens in class order. Duplicate tokens
// keep the index of their first occurrence.
func NewCharset(tokens []string) *Charset {
	toIdx := make(map[string]int, len(tokens))
	for i, t := range tokens {
		if _, ok := toIdx[t]; !ok {
			toIdx[t] = i
		}
	}
	return &Charset{Tokens: tokens, TokenToIndex: toIdx}
}

// Size returns the number of tokens in the charset.
func (c *Charset) Size() int { return len(c.Tokens) }

// Classes is the number of model output classes including the blank.
func (c *Charset) Classes() int { return len(c.Tokens) + 1 }

// LookupIndex returns the index of a token, or -1 if not present.
func (c *Charset) LookupIndex(token string) int {
	if c == nil {
		return -1
	}
	if idx, ok := c.TokenToIndex[token]; ok {
		return idx
	}
	return -1
}

// LookupToken returns the token for an index, or empty string if missing.
func (c *Charset) LookupToken(index int) string {
	if c == nil || index < 0 || index >= len(c.Tokens) {
		return ""
	}
	return c.Tokens[index]
}

// Decode maps collapsed class indices (blank already removed) to text.
func (c *Charset) Decode(classes []int) string {
	var b strings.Builder
	for _, idx := range classes {
		b.WriteString(c.LookupToken(idx - 1))
	}
	return b.String()
}
