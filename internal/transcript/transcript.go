package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one timed span of recognized speech. Times are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var linePattern = regexp.MustCompile(`\[(\d+\.?\d*)s\s*->\s*(\d+\.?\d*)s\]\s*(.+)`)

// Format renders segments in the canonical one-line-per-segment form
// "[12.34s -> 15.00s] text". Text is trimmed and internal newlines collapse
// to single spaces. Segments with no text after trimming are skipped.
func Format(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := cleanText(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%.2fs -> %.2fs] %s", seg.Start, seg.End, text)
	}
	return b.String()
}

// Parse reads canonical transcript text back into segments. Lines that do not
// match the canonical form are dropped.
func Parse(text string) []Segment {
	var segments []Segment
	for _, line := range strings.Split(text, "\n") {
		match := linePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		start, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		body := strings.TrimSpace(match[3])
		if body == "" {
			continue
		}
		segments = append(segments, Segment{Start: start, End: end, Text: body})
	}
	return segments
}

// Duration returns the end time of the last segment.
func Duration(segments []Segment) float64 {
	var maxEnd float64
	for _, seg := range segments {
		if seg.End > maxEnd {
			maxEnd = seg.End
		}
	}
	return maxEnd
}

func cleanText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.ContainsAny(text, "\r\n") {
		return text
	}
	return strings.Join(strings.Fields(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)), " ")
}
