package notes

import (
	"regexp"
	"strings"
)

// Section is one titled block of the generated notes.
type Section struct {
	Title     string
	Timestamp string
	Body      string
}

// Document is the parsed form of generated notes.
type Document struct {
	Summary  Section
	Sections []Section
}

var (
	summaryBlock = regexp.MustCompile(`(?s)<summary>(.*?)</summary>`)
	sectionBlock = regexp.MustCompile(`(?s)<section>(.*?)</section>`)
	titleTag     = regexp.MustCompile(`(?s)<title>(.*?)</title>`)
	timestampTag = regexp.MustCompile(`(?s)<timestamp>(.*?)</timestamp>`)
	bodyTag      = regexp.MustCompile(`(?s)<body>(.*?)</body>`)
)

// Parse extracts the summary and sections from notes text. It is lenient:
// text without the expected markup yields an empty Document, and missing
// child tags leave the matching field empty.
func Parse(text string) Document {
	var doc Document
	if match := summaryBlock.FindStringSubmatch(text); match != nil {
		doc.Summary = parseSection(match[1])
	}
	for _, match := range sectionBlock.FindAllStringSubmatch(text, -1) {
		doc.Sections = append(doc.Sections, parseSection(match[1]))
	}
	return doc
}

func parseSection(block string) Section {
	return Section{
		Title:     tagContent(titleTag, block),
		Timestamp: tagContent(timestampTag, block),
		Body:      strings.TrimSpace(dedent(rawTagContent(bodyTag, block))),
	}
}

func tagContent(pattern *regexp.Regexp, block string) string {
	return strings.TrimSpace(rawTagContent(pattern, block))
}

func rawTagContent(pattern *regexp.Regexp, block string) string {
	if match := pattern.FindStringSubmatch(block); match != nil {
		return match[1]
	}
	return ""
}

// IsEmpty reports whether nothing was parsed.
func (d Document) IsEmpty() bool {
	return d.Summary == (Section{}) && len(d.Sections) == 0
}

// Markdown renders the document as plain markdown.
func (d Document) Markdown() string {
	var b strings.Builder
	if d.Summary != (Section{}) {
		title := d.Summary.Title
		if title == "" {
			title = "Summary"
		}
		b.WriteString("## " + title + "\n\n")
		if d.Summary.Body != "" {
			b.WriteString(d.Summary.Body + "\n\n")
		}
	}
	for _, section := range d.Sections {
		b.WriteString("## " + section.Title)
		if section.Timestamp != "" {
			b.WriteString(" " + section.Timestamp)
		}
		b.WriteString("\n\n")
		if section.Body != "" {
			b.WriteString(section.Body + "\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// dedent strips the common leading indentation the model copies from the
// prompt template.
func dedent(text string) string {
	lines := strings.Split(text, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return text
	}
	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
