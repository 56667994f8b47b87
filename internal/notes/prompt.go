package notes

import (
	"fmt"
	"strings"

	"notesmith/internal/transcript"
)

const promptHeader = `You are an expert note-taking assistant. Turn the video transcription below into comprehensive, well-structured study notes.

The transcription lists segments as [start - end] text, with times in seconds.

OUTPUT FORMAT (required): wrap everything in this XML-like markup.

<notes>
  <summary>
    <title>Summary</title>
    <body>
      [2-3 paragraphs covering the main topics and key takeaways]
    </body>
  </summary>

  <section>
    <title>[Section Title]</title>
    <timestamp>[MM:SS]</timestamp>
    <body>
      [Section content in markdown: bullet points, numbered lists, **bold**,
      *italic*, ` + "`code`" + ` for technical terms, > blockquotes for key quotes]
    </body>
  </section>

  [More sections as needed]
</notes>

REQUIREMENTS:
1. Use exactly these tags: <notes>, <summary>, <section>, <title>, <timestamp>, <body>.
2. The <summary> has a <title> and a <body> of 2-3 paragraphs.
3. Every main topic is its own <section> with a descriptive <title>, a <timestamp>, and a markdown <body>.
4. Each <timestamp> is the section's start in [MM:SS] or [HH:MM:SS] form, converted from the segment start times.
5. Cover key concepts and definitions, important insights, examples, and takeaways.
6. Order sections logically, grouping related ideas and moving from simple to advanced.
7. Close every tag.

TRANSCRIPTION WITH TIMESTAMPS:
`

const promptFooter = `

Generate the XML-formatted study notes:`

// BuildPrompt renders the note-synthesis prompt for the given segments.
func BuildPrompt(segments []transcript.Segment) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%.2fs - %.2fs] %s", seg.Start, seg.End, seg.Text)
	}
	b.WriteString(promptFooter)
	return b.String()
}
