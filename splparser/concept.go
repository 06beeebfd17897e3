package splparser

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// BuildCodedConcept reads the code, codeSystem and displayName attributes of el.
// It returns nil unless both code and codeSystem are present.
func BuildCodedConcept(el *etree.Element) *entities.CodedConcept {
	code := Attr(el, "code")
	system := Attr(el, "codeSystem")
	if code == "" || system == "" {
		return nil
	}
	return &entities.CodedConcept{
		Code:           code,
		CodeSystem:     system,
		DisplayName:    Attr(el, "displayName"),
		CodeSystemName: Attr(el, "codeSystemName"),
	}
}

// BuildQuantity reads the numerator and denominator of a quantity element.
// The numerator is required. A missing denominator value becomes 1 silently;
// an unparseable one also becomes 1 but the quantity is returned together
// with an error wrapping ErrInvalidDenominator.
func BuildQuantity(el *etree.Element) (*entities.Quantity, error) {
	if el == nil {
		return nil, fmt.Errorf("quantity element is missing")
	}
	num := Find(el, "numerator")
	if num == nil {
		return nil, fmt.Errorf("quantity has no numerator")
	}
	raw := Attr(num, "value")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid numerator value %q: %w", raw, err)
	}

	q := &entities.Quantity{
		NumeratorValue:   value,
		NumeratorUnit:    Attr(num, "unit"),
		DenominatorValue: 1.0,
	}
	if den := Find(el, "denominator"); den != nil {
		q.DenominatorUnit = Attr(den, "unit")
		if raw := Attr(den, "value"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return q, fmt.Errorf("%w %q", ErrInvalidDenominator, raw)
			}
			q.DenominatorValue = v
		}
	}
	return q, nil
}
