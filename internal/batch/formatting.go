package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

func formatBatchResults(items []Item, format string) (string, error) {
	switch format {
	case FormatJSON, "":
		return formatJSON(items)
	case FormatCSV:
		return formatCSV(items)
	case FormatText:
		return formatText(items), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

type jsonItem struct {
	File    string          `json:"file"`
	Bubbles []bubble.Bubble `json:"bubbles"`
	Error   string          `json:"error,omitempty"`
}

// formatJSON emits the bare bubble array for a single successful image and
// a per-file envelope otherwise.
func formatJSON(items []Item) (string, error) {
	var v any
	if len(items) == 1 && items[0].Err == nil {
		v = items[0].Bubbles
	} else {
		out := make([]jsonItem, len(items))
		for i, it := range items {
			out[i] = jsonItem{File: it.File, Bubbles: it.Bubbles}
			if it.Err != nil {
				out[i].Error = it.Err.Error()
			}
		}
		v = out
	}
	bts, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatCSV(items []Item) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{"file", "index", "text", "x", "y", "width", "height", "orientation", "confidence"}}

	for _, it := range items {
		for j, b := range it.Bubbles {
			box := b.TightBoundingBox
			rows = append(rows, []string{
				it.File,
				strconv.Itoa(j),
				b.Text,
				formatFloat(box.X),
				formatFloat(box.Y),
				formatFloat(box.Width),
				formatFloat(box.Height),
				formatFloat(b.Orientation),
				formatFloat(b.Confidence),
			})
		}
	}

	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatText(items []Item) string {
	var output strings.Builder
	for i, it := range items {
		if i > 0 {
			output.WriteString("\n")
		}
		if len(items) > 1 {
			fmt.Fprintf(&output, "# %s\n", it.File)
		}
		if it.Err != nil {
			fmt.Fprintf(&output, "error: %v\n", it.Err)
			continue
		}
		for _, b := range it.Bubbles {
			output.WriteString(b.Text)
			output.WriteString("\n")
		}
	}
	return output.String()
}
