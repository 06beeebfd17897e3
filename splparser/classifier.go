package splparser

import "github.com/giygas/spl-labels-api/splparser/entities"

// LOINCCodeSystem is the OID of the LOINC terminology.
const LOINCCodeSystem = "2.16.840.1.113883.6.1"

var sectionTypesByLOINC = map[string]entities.SectionType{
	"48780-1": entities.SectionSPLListing,
	"55106-9": entities.SectionActiveIngredient,
	"55105-1": entities.SectionPurpose,
	"34071-1": entities.SectionWarnings,
	"50570-1": entities.SectionDoNotUse,
	"50569-3": entities.SectionAskDoctor,
	"50567-7": entities.SectionWhenUsing,
	"50566-9": entities.SectionStopUse,
	"53414-9": entities.SectionPregnancyBreastfeeding,
	"50565-1": entities.SectionKeepOutOfReach,
	"34067-9": entities.SectionIndicationsUsage,
	"51727-6": entities.SectionInactiveIngredient,
	"42229-5": entities.SectionUnclassified,
}

// Classify maps a LOINC section code to its section type. Unknown codes,
// the empty string included, return ("", false).
func Classify(loincCode string) (entities.SectionType, bool) {
	t, ok := sectionTypesByLOINC[loincCode]
	return t, ok
}

// LOINCCode returns the code a section type is classified from.
func LOINCCode(t entities.SectionType) (string, bool) {
	for code, st := range sectionTypesByLOINC {
		if st == t {
			return code, true
		}
	}
	return "", false
}

// classifierOverrides lets a parser remap codes on top of the fixed table.
type classifierOverrides map[string]entities.SectionType

func (o classifierOverrides) classify(code string) (entities.SectionType, bool) {
	if t, ok := o[code]; ok {
		return t, true
	}
	return Classify(code)
}
