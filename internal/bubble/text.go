package bubble

import "strings"

// ellipsisArtifact is the halfwidth katakana middle-dot triple some line
// recognizers emit in place of an ellipsis.
const ellipsisArtifact = "･･･"

// CleanText trims surrounding whitespace and replaces the three-dot artifact
// with a single ellipsis character. No other cleanup is applied.
func CleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ellipsisArtifact, "…"))
}
