package notes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timestampPattern = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?::(\d{2}))?\]`)

// LinkTimestamps rewrites every [MM:SS] or [H:MM:SS] marker in text into a
// markdown link that seeks source to that offset. Markers already followed
// by "(" are left alone, so the rewrite is idempotent. An empty source leaves
// text unchanged.
func LinkTimestamps(text, source string) string {
	source = strings.TrimSpace(source)
	if source == "" || text == "" {
		return text
	}
	matches := timestampPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(matches)*(len(source)+8))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if end < len(text) && text[end] == '(' {
			continue
		}
		display, seconds := timestampValue(text, m)
		b.WriteString(text[last:start])
		fmt.Fprintf(&b, "[%s](%s)", display, SeekURL(source, seconds))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func timestampValue(text string, m []int) (string, int) {
	first, _ := strconv.Atoi(text[m[2]:m[3]])
	second, _ := strconv.Atoi(text[m[4]:m[5]])
	if m[6] >= 0 {
		third, _ := strconv.Atoi(text[m[6]:m[7]])
		return fmt.Sprintf("%d:%02d:%02d", first, second, third), first*3600 + second*60 + third
	}
	return fmt.Sprintf("%d:%02d", first, second), first*60 + second
}

// SeekURL appends a t=<seconds> parameter to source, using & when source
// already has a query string and keeping any fragment last.
func SeekURL(source string, seconds int) string {
	base, fragment := source, ""
	if idx := strings.IndexByte(source, '#'); idx >= 0 {
		base, fragment = source[:idx], source[idx:]
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "t=" + strconv.Itoa(seconds) + fragment
}
