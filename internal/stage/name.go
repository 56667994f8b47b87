package stage

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Name identifies a pipeline stage.
type Name string

const (
	Acquire    Name = "acquire"
	Transcribe Name = "transcribe"
	Synthesize Name = "synthesize"
)

var order = []Name{Acquire, Transcribe, Synthesize}

var titleCaser = cases.Title(language.English)

// Names returns the stages in execution order.
func Names() []Name {
	out := make([]Name, len(order))
	copy(out, order)
	return out
}

// ParseName converts a string into a Name if recognized.
func ParseName(value string) (Name, bool) {
	candidate := Name(strings.ToLower(strings.TrimSpace(value)))
	for _, name := range order {
		if name == candidate {
			return name, true
		}
	}
	return "", false
}

// Next returns the stage after n, or "" when n is last.
func (n Name) Next() Name {
	for i, name := range order {
		if name == n && i+1 < len(order) {
			return order[i+1]
		}
	}
	return ""
}

func (n Name) String() string { return string(n) }

// Label returns a display form such as "Transcribe".
func (n Name) Label() string {
	return titleCaser.String(string(n))
}
