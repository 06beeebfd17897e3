package splparser

import (
	"regexp"
	"strings"

	"github.com/blevesearch/segment"
	"github.com/samber/lo"
)

// Dosage is one dosing statement found in clinical text.
type Dosage struct {
	Amount        string `json:"amount"`
	Unit          string `json:"unit"`
	Frequency     string `json:"frequency,omitempty"`
	FrequencyUnit string `json:"frequency_unit,omitempty"`
	Match         string `json:"full_match"`
}

var dosagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(tablet|capsule|dose)s?(?:\s*(\d+)\s*times?\s*(?:per|a)\s*(day|week|month))?`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mg|g|mcg|mL)\b(?:\s*(\d+)\s*times?\s*(?:per|a)\s*(day|week|month))?`),
}

// ExtractDosages finds amount/unit pairs with an optional "N times per day" frequency.
func ExtractDosages(text string) []Dosage {
	var out []Dosage
	for _, re := range dosagePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, Dosage{
				Amount:        m[1],
				Unit:          m[2],
				Frequency:     m[3],
				FrequencyUnit: m[4],
				Match:         strings.TrimSpace(m[0]),
			})
		}
	}
	return out
}

var listItemSplit = regexp.MustCompile(`(?m)^\s*(?:•|\d+\.|\*)\s*`)

// ExtractWarnings splits bulleted or numbered text into items, dropping fragments of ten characters or fewer.
func ExtractWarnings(text string) []string {
	items := listItemSplit.Split(text, -1)
	return lo.FilterMap(items, func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, len(item) > 10
	})
}

var contraindicationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)do not use[^.]*if[^.]*`),
	regexp.MustCompile(`(?is)contraindicated[^.]*in[^.]*`),
	regexp.MustCompile(`(?is)should not be used[^.]*`),
	regexp.MustCompile(`(?is)avoid[^.]*if[^.]*`),
}

func Contraindications(text string) []string {
	var out []string
	for _, re := range contraindicationPatterns {
		for _, m := range re.FindAllString(text, -1) {
			out = append(out, strings.TrimSpace(m))
		}
	}
	return out
}

type ReadingLevel struct {
	FleschKincaid     float64 `json:"flesch_kincaid"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	AvgWordLength     float64 `json:"avg_word_length"`
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// CalculateReadingLevel estimates the Flesch-Kincaid grade of text.
func CalculateReadingLevel(text string) ReadingLevel {
	sentences := lo.Filter(sentenceSplit.Split(text, -1), func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})
	words := Words(text)
	if len(sentences) == 0 || len(words) == 0 {
		return ReadingLevel{}
	}
	syllables := lo.SumBy(words, countSyllables)
	letters := lo.SumBy(words, func(w string) int { return len([]rune(w)) })

	n := float64(len(words))
	rl := ReadingLevel{
		AvgSentenceLength: n / float64(len(sentences)),
		AvgWordLength:     float64(letters) / n,
	}
	rl.FleschKincaid = max(0, 0.39*rl.AvgSentenceLength+11.8*float64(syllables)/n-15.59)
	return rl
}

// Words splits text into words and numbers using Unicode word boundaries.
func Words(text string) []string {
	seg := segment.NewWordSegmenter(strings.NewReader(text))
	var out []string
	for seg.Segment() {
		if seg.Type() == segment.None {
			continue
		}
		out = append(out, seg.Text())
	}
	return out
}

func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, c := range word {
		vowel := strings.ContainsRune("aeiouy", c)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	return max(1, count)
}

// TextAnalysis bundles the clinical text statistics of a section.
type TextAnalysis struct {
	Dosages           []Dosage     `json:"dosages"`
	Warnings          []string     `json:"warnings"`
	Contraindications []string     `json:"contraindications"`
	ReadingLevel      ReadingLevel `json:"reading_level"`
	WordCount         int          `json:"word_count"`
}

func AnalyzeText(text string) TextAnalysis {
	return TextAnalysis{
		Dosages:           ExtractDosages(text),
		Warnings:          ExtractWarnings(text),
		Contraindications: Contraindications(text),
		ReadingLevel:      CalculateReadingLevel(text),
		WordCount:         len(Words(text)),
	}
}
