package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2 string
	code3 []string
	name  string
}

// Languages whisper models are commonly run with. Anything else goes through
// BCP 47 parsing.
var entries = []entry{
	{"en", []string{"eng"}, "English"},
	{"es", []string{"spa"}, "Spanish"},
	{"fr", []string{"fra", "fre"}, "French"},
	{"de", []string{"deu", "ger"}, "German"},
	{"it", []string{"ita"}, "Italian"},
	{"pt", []string{"por"}, "Portuguese"},
	{"ja", []string{"jpn"}, "Japanese"},
	{"ko", []string{"kor"}, "Korean"},
	{"zh", []string{"zho", "chi"}, "Chinese"},
	{"ru", []string{"rus"}, "Russian"},
	{"ar", []string{"ara"}, "Arabic"},
	{"hi", []string{"hin"}, "Hindi"},
	{"nl", []string{"nld", "dut"}, "Dutch"},
	{"pl", []string{"pol"}, "Polish"},
	{"sv", []string{"swe"}, "Swedish"},
	{"da", []string{"dan"}, "Danish"},
	{"no", []string{"nor"}, "Norwegian"},
	{"fi", []string{"fin"}, "Finnish"},
	{"uk", []string{"ukr"}, "Ukrainian"},
	{"tr", []string{"tur"}, "Turkish"},
}

var index = buildIndex()

func buildIndex() map[string]*entry {
	idx := make(map[string]*entry, len(entries)*4)
	for i := range entries {
		e := &entries[i]
		idx[e.code2] = e
		for _, code := range e.code3 {
			idx[code] = e
		}
		idx[strings.ToLower(e.name)] = e
	}
	return idx
}

// ToISO2 converts a language code, tag, or English name to ISO 639-1.
// Unrecognized input returns an empty string.
func ToISO2(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if e, ok := index[value]; ok {
		return e.code2
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	code := base.String()
	if len(code) != 2 {
		return ""
	}
	return code
}

// DisplayName returns the English name of a language for status output.
// Empty input means the endpoint detects the language.
func DisplayName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "auto-detect"
	}
	code := ToISO2(value)
	if e, ok := index[code]; ok {
		return e.name
	}
	if code != "" {
		if name := display.English.Languages().Name(xlanguage.Make(code)); name != "" {
			return name
		}
	}
	return strings.ToUpper(value)
}
