package splparser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// LabelProfile selects the set of sections a label is expected to contain.
type LabelProfile string

const (
	ProfileOTC          LabelProfile = "OTC"
	ProfilePrescription LabelProfile = "RX"
)

var expectedSections = map[LabelProfile][]entities.SectionType{
	ProfileOTC: {
		entities.SectionActiveIngredient,
		entities.SectionPurpose,
		entities.SectionWarnings,
		entities.SectionDoNotUse,
		entities.SectionIndicationsUsage,
		entities.SectionInactiveIngredient,
	},
	ProfilePrescription: {
		entities.SectionIndicationsUsage,
		entities.SectionWarnings,
		entities.SectionSPLListing,
	},
}

type SectionDistribution struct {
	TotalSections   int            `json:"total_sections"`
	TypeCounts      map[string]int `json:"section_type_distribution"`
	TextSections    int            `json:"text_sections"`
	ProductSections int            `json:"product_sections"`
	SubsectionCount int            `json:"subsection_count"`
	MediaReferences int            `json:"media_references"`
}

type SectionMetrics struct {
	AvgTextLength        float64 `json:"avg_text_length"`
	MaxTextLength        int     `json:"max_text_length"`
	MinTextLength        int     `json:"min_text_length"`
	AvgCompleteness      float64 `json:"avg_completeness"`
	SectionsWithProducts int     `json:"sections_with_products"`
	SectionsWithMedia    int     `json:"sections_with_media"`
	TotalSubsections     int     `json:"total_subsections"`
}

// DocumentAnalysis is the aggregate returned by AnalyzeDocument.
type DocumentAnalysis struct {
	Distribution    SectionDistribution                   `json:"distribution"`
	Metrics         SectionMetrics                        `json:"metrics"`
	MissingSections []entities.SectionType                `json:"missing_sections"`
	Keywords        []string                              `json:"keywords"`
	Ingredients     map[string]entities.IngredientSummary `json:"ingredients"`
}

// flatten lists every section of the forest in pre-order.
func flatten(sections []entities.SPLSection) []*entities.SPLSection {
	var out []*entities.SPLSection
	for i := range sections {
		sections[i].Walk(func(s *entities.SPLSection) bool {
			out = append(out, s)
			return true
		})
	}
	return out
}

func AnalyzeDistribution(sections []*entities.SPLSection) SectionDistribution {
	d := SectionDistribution{TotalSections: len(sections), TypeCounts: map[string]int{}}
	for _, s := range sections {
		name := "UNKNOWN"
		if s.SectionType != "" {
			name = string(s.SectionType)
		}
		d.TypeCounts[name]++
		if s.TextContent != "" {
			d.TextSections++
		}
		if s.ManufacturedProduct != nil {
			d.ProductSections++
		}
		d.SubsectionCount += len(s.Subsections)
		d.MediaReferences += len(s.MediaReferences)
	}
	return d
}

// CompletenessScore rates a section between 0 and 1 over six criteria:
// id, code, type, substantial text, product and title.
func CompletenessScore(s *entities.SPLSection) float64 {
	criteria := []bool{
		s.SectionID != "",
		s.SectionCode != nil,
		s.SectionType != "",
		len(strings.TrimSpace(s.TextContent)) > 10,
		s.ManufacturedProduct != nil,
		s.Title != "",
	}
	return float64(lo.Count(criteria, true)) / float64(len(criteria))
}

// MissingSections returns the expected section types of profile absent from sections.
func MissingSections(sections []*entities.SPLSection, profile LabelProfile) []entities.SectionType {
	expected, ok := expectedSections[LabelProfile(strings.ToUpper(string(profile)))]
	if !ok {
		expected = expectedSections[ProfilePrescription]
	}
	present := lo.SliceToMap(sections, func(s *entities.SPLSection) (entities.SectionType, bool) {
		return s.SectionType, true
	})
	return lo.Filter(expected, func(t entities.SectionType, _ int) bool { return !present[t] })
}

var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:tablet|capsule|dose|dosage|mg|g|mcg|ml)\b`),
	regexp.MustCompile(`(?i)\b(?:daily|twice|once|morning|evening|bedtime)\b`),
	regexp.MustCompile(`(?i)\b(?:treat|treatment|prevent|relief|symptom)\b`),
	regexp.MustCompile(`(?i)\b(?:side effect|adverse|reaction|allergy)\b`),
	regexp.MustCompile(`(?i)\b(?:doctor|physician|pharmacist|healthcare)\b`),
}

// Keywords returns the sorted distinct pharmaceutical terms found in the section text.
func Keywords(s *entities.SPLSection) []string {
	if s.TextContent == "" {
		return []string{}
	}
	text := strings.ToLower(s.TextContent)
	var found []string
	for _, re := range keywordPatterns {
		found = append(found, re.FindAllString(text, -1)...)
	}
	found = lo.Uniq(found)
	sort.Strings(found)
	return found
}

func CalculateMetrics(sections []*entities.SPLSection) SectionMetrics {
	var m SectionMetrics
	if len(sections) == 0 {
		return m
	}
	var lengths []int
	var completeness float64
	for _, s := range sections {
		if s.TextContent != "" {
			lengths = append(lengths, len(s.TextContent))
		}
		completeness += CompletenessScore(s)
		if s.ManufacturedProduct != nil {
			m.SectionsWithProducts++
		}
		if len(s.MediaReferences) > 0 {
			m.SectionsWithMedia++
		}
		m.TotalSubsections += len(s.Subsections)
	}
	if len(lengths) > 0 {
		m.AvgTextLength = float64(lo.Sum(lengths)) / float64(len(lengths))
		m.MaxTextLength = lo.Max(lengths)
		m.MinTextLength = lo.Min(lengths)
	}
	m.AvgCompleteness = completeness / float64(len(sections))
	return m
}

// AnalyzeDocument runs every section analysis over the whole tree of doc.
func AnalyzeDocument(doc *entities.SPLDocument, profile LabelProfile) DocumentAnalysis {
	all := flatten(doc.Sections)
	a := DocumentAnalysis{
		Distribution:    AnalyzeDistribution(all),
		Metrics:         CalculateMetrics(all),
		MissingSections: MissingSections(all, profile),
		Ingredients:     map[string]entities.IngredientSummary{},
	}
	var keywords []string
	for _, s := range all {
		keywords = append(keywords, Keywords(s)...)
		if s.ManufacturedProduct != nil {
			a.Ingredients[s.SectionID] = s.ManufacturedProduct.IngredientSummary()
		}
	}
	a.Keywords = lo.Uniq(keywords)
	sort.Strings(a.Keywords)
	return a
}
