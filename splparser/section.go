package splparser

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// sectionStrategy fills the body of a section whose header has already been read.
type sectionStrategy interface {
	apply(r *run, el *etree.Element, s *entities.SPLSection)
}

type (
	genericStrategy         struct{}
	clinicalTextStrategy    struct{}
	productListingStrategy  struct{}
	ingredientFocusStrategy struct{}
)

func strategyFor(s Strategy) sectionStrategy {
	switch s {
	case StrategyClinicalText:
		return clinicalTextStrategy{}
	case StrategyProductListing:
		return productListingStrategy{}
	case StrategyIngredientFocus:
		return ingredientFocusStrategy{}
	default:
		return genericStrategy{}
	}
}

func (genericStrategy) apply(_ *run, el *etree.Element, s *entities.SPLSection) {
	s.TextContent = ExtractText(Find(el, "text"))
}

func (clinicalTextStrategy) apply(r *run, el *etree.Element, s *entities.SPLSection) {
	text := Find(el, "text")
	s.TextContent = applyCosmetics(ExtractText(text), s.SectionType, r.p.opts)
	s.MediaReferences = r.extractMedia(el, text, s.SectionID)
}

func (productListingStrategy) apply(r *run, el *etree.Element, s *entities.SPLSection) {
	s.TextContent = ExtractText(Find(el, "text"))
	s.ManufacturedProduct = r.attachProduct(el, s.SectionID)
}

func (ingredientFocusStrategy) apply(r *run, el *etree.Element, s *entities.SPLSection) {
	clinicalTextStrategy{}.apply(r, el, s)
	s.ManufacturedProduct = r.attachProduct(el, s.SectionID)
}

// attachProduct returns the first product found among the section subjects.
// Later products cannot be attached and are reported.
func (r *run) attachProduct(el *etree.Element, sectionID string) *entities.ManufacturedProduct {
	var product *entities.ManufacturedProduct
	for _, subject := range FindAll(el, "subject") {
		p := r.extractProduct(subject, sectionID)
		if p == nil {
			continue
		}
		if product != nil {
			r.errs.add("section %s: additional manufactured product %q not attached", sectionID, p.FullName())
			continue
		}
		product = p
	}
	return product
}

// parseSection builds a section and its subtree. It reports false when the
// section has no id, in which case the whole subtree is dropped.
func (r *run) parseSection(el *etree.Element, depth int, path string) (entities.SPLSection, bool) {
	s := entities.SPLSection{
		SectionID:       PathAttr(el, "id", "root"),
		MediaReferences: []entities.MediaReference{},
		Subsections:     []entities.SPLSection{},
	}
	if s.SectionID == "" {
		r.errs.add("section %s has no id, dropped with its subsections", path)
		return s, false
	}

	codeEl := Find(el, "code")
	s.SectionCode = BuildCodedConcept(codeEl)
	if s.SectionCode == nil {
		r.errs.add("section %s: missing or incomplete section code", s.SectionID)
	}
	if t, ok := r.p.overrides.classify(Attr(codeEl, "code")); ok {
		s.SectionType = t
	}
	s.Title = Text(Find(el, "title"))
	s.EffectiveTime = PathAttr(el, "effectiveTime", "value")

	strategy := Dispatch(s.SectionType)
	r.logger.Debug("parsing section", "section_id", s.SectionID, "type", s.SectionType.String(), "strategy", strategy.String(), "depth", depth)
	strategyFor(strategy).apply(r, el, &s)

	for i, child := range FindAllPath(el, "component/section") {
		childPath := fmt.Sprintf("%s/section[%d]", path, i+1)
		if depth+1 > r.p.opts.MaxSectionDepth {
			r.errs.add("section %s: subsection %s exceeds maximum depth %d, skipped", s.SectionID, childPath, r.p.opts.MaxSectionDepth)
			continue
		}
		if sub, ok := r.parseSection(child, depth+1, childPath); ok {
			s.Subsections = append(s.Subsections, sub)
		}
	}
	return s, true
}
