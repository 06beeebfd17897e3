package splparser

import (
	"fmt"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// Strategy selects how the body of a section is extracted.
type Strategy int

const (
	StrategyGeneric Strategy = iota
	StrategyClinicalText
	StrategyProductListing
	StrategyIngredientFocus
)

func (s Strategy) String() string {
	switch s {
	case StrategyGeneric:
		return "Generic"
	case StrategyClinicalText:
		return "ClinicalText"
	case StrategyProductListing:
		return "ProductListing"
	case StrategyIngredientFocus:
		return "IngredientFocus"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Dispatch returns the strategy for a section type. Every known type is listed
// explicitly; the empty type and unknown values fall through to Generic.
func Dispatch(t entities.SectionType) Strategy {
	switch t {
	case entities.SectionSPLListing:
		return StrategyProductListing
	case entities.SectionActiveIngredient,
		entities.SectionInactiveIngredient,
		entities.SectionPurpose:
		return StrategyIngredientFocus
	case entities.SectionWarnings,
		entities.SectionIndicationsUsage,
		entities.SectionDoNotUse,
		entities.SectionAskDoctor,
		entities.SectionWhenUsing,
		entities.SectionStopUse,
		entities.SectionPregnancyBreastfeeding,
		entities.SectionKeepOutOfReach,
		entities.SectionUnclassified:
		return StrategyClinicalText
	default:
		return StrategyGeneric
	}
}
