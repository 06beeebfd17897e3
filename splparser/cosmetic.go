package splparser

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

var cautionPhrases = regexp.MustCompile(`(?i)\b(do not|stop use|ask a doctor|keep out of reach|warning|caution|danger|allergy alert|overdose)\b`)

var abbreviations = []struct {
	re   *regexp.Regexp
	full string
}{
	{regexp.MustCompile(`\bhrs\b`), "hours"},
	{regexp.MustCompile(`\bhr\b`), "hour"},
	{regexp.MustCompile(`\btabs\b`), "tablets"},
	{regexp.MustCompile(`\btab\b`), "tablet"},
	{regexp.MustCompile(`\bcaps\b`), "capsules"},
	{regexp.MustCompile(`\bapprox\.`), "approximately"},
	{regexp.MustCompile(`\bq\.?d\.`), "once daily"},
	{regexp.MustCompile(`\bb\.?i\.?d\.`), "twice daily"},
	{regexp.MustCompile(`\bt\.?i\.?d\.`), "three times daily"},
}

// emphasizedTypes are the section types whose caution phrases get upper-cased.
var emphasizedTypes = map[entities.SectionType]bool{
	entities.SectionWarnings:               true,
	entities.SectionDoNotUse:               true,
	entities.SectionAskDoctor:              true,
	entities.SectionStopUse:                true,
	entities.SectionKeepOutOfReach:         true,
	entities.SectionPregnancyBreastfeeding: true,
}

func applyCosmetics(text string, t entities.SectionType, opts Options) string {
	if text == "" {
		return text
	}
	if opts.ExpandAbbreviations {
		for _, a := range abbreviations {
			text = a.re.ReplaceAllString(text, a.full)
		}
	}
	if opts.EmphasizeKeywords && emphasizedTypes[t] {
		upper := cases.Upper(language.English)
		text = cautionPhrases.ReplaceAllStringFunc(text, func(m string) string {
			return upper.String(strings.TrimSpace(m))
		})
	}
	return text
}
