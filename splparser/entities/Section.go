package entities

// SectionType is the classification of a section derived from its LOINC code.
// The empty value means the section code is not one of the recognized codes.
type SectionType string

const (
	SectionSPLListing             SectionType = "SPL_LISTING"
	SectionActiveIngredient       SectionType = "ACTIVE_INGREDIENT"
	SectionPurpose                SectionType = "PURPOSE"
	SectionWarnings               SectionType = "WARNINGS"
	SectionDoNotUse               SectionType = "DO_NOT_USE"
	SectionAskDoctor              SectionType = "ASK_DOCTOR"
	SectionWhenUsing              SectionType = "WHEN_USING"
	SectionStopUse                SectionType = "STOP_USE"
	SectionPregnancyBreastfeeding SectionType = "PREGNANCY_BREASTFEEDING"
	SectionKeepOutOfReach         SectionType = "KEEP_OUT_OF_REACH"
	SectionIndicationsUsage       SectionType = "INDICATIONS_USAGE"
	SectionInactiveIngredient     SectionType = "INACTIVE_INGREDIENT"
	SectionUnclassified           SectionType = "UNCLASSIFIED"
)

// AllSectionTypes lists every known section type in table order.
var AllSectionTypes = []SectionType{
	SectionSPLListing,
	SectionActiveIngredient,
	SectionPurpose,
	SectionWarnings,
	SectionDoNotUse,
	SectionAskDoctor,
	SectionWhenUsing,
	SectionStopUse,
	SectionPregnancyBreastfeeding,
	SectionKeepOutOfReach,
	SectionIndicationsUsage,
	SectionInactiveIngredient,
	SectionUnclassified,
}

func (t SectionType) String() string {
	if t == "" {
		return "NONE"
	}
	return string(t)
}

// Valid reports whether t is one of the known section types.
func (t SectionType) Valid() bool {
	for _, known := range AllSectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

type MediaReference struct {
	MediaID        string `json:"media_id"`
	MediaType      string `json:"media_type"`
	ReferenceValue string `json:"reference_value"`
	Description    string `json:"description,omitempty"`
}

// SPLSection is a node of the section tree. Each section owns its subsections.
type SPLSection struct {
	SectionID           string               `json:"section_id"`
	SectionCode         *CodedConcept        `json:"section_code,omitempty"`
	SectionType         SectionType          `json:"section_type,omitempty"`
	Title               string               `json:"title,omitempty"`
	TextContent         string               `json:"text_content,omitempty"`
	EffectiveTime       string               `json:"effective_time,omitempty"`
	MediaReferences     []MediaReference     `json:"media_references"`
	ManufacturedProduct *ManufacturedProduct `json:"manufactured_product,omitempty"`
	Subsections         []SPLSection         `json:"subsections"`
}

// Walk visits s and its descendants in pre-order. Returning false from fn
// stops the walk; Walk then returns false too.
func (s *SPLSection) Walk(fn func(*SPLSection) bool) bool {
	if !fn(s) {
		return false
	}
	for i := range s.Subsections {
		if !s.Subsections[i].Walk(fn) {
			return false
		}
	}
	return true
}

// Count returns the number of sections in the subtree rooted at s, s included.
func (s *SPLSection) Count() int {
	n := 0
	s.Walk(func(*SPLSection) bool {
		n++
		return true
	})
	return n
}
