package splparser

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// maxPackagingDepth bounds nested asContent/containerPackagedProduct levels.
const maxPackagingDepth = 8

// extractProduct builds the product of a subject element. The subject wraps
// an outer manufacturedProduct whose inner manufacturedProduct carries the
// product itself. Core fields come from the inner level when present there,
// marketing, approval and routes are merged from both levels.
func (r *run) extractProduct(subject *etree.Element, sectionID string) *entities.ManufacturedProduct {
	outer := Find(subject, "manufacturedProduct")
	if outer == nil {
		r.errs.add("section %s: subject has no manufacturedProduct", sectionID)
		return nil
	}
	inner := Find(outer, "manufacturedProduct")
	if inner == nil {
		inner = Find(outer, "manufacturedMedicine")
	}
	if inner == nil {
		r.logger.Debug("manufacturedProduct is not nested, reading outer level", "section_id", sectionID)
	}

	// core lists the levels in precedence order for core fields
	core := nonNil(inner, outer)

	p := &entities.ManufacturedProduct{
		Ingredients: []entities.Ingredient{},
		Packaging:   []entities.PackageInfo{},
		Routes:      []entities.RouteOfAdministration{},
	}
	for _, level := range core {
		if p.ProductCode == nil {
			p.ProductCode = BuildCodedConcept(Find(level, "code"))
		}
		if p.ProductName == "" {
			if name := Find(level, "name"); name != nil {
				p.ProductName = nameWithoutSuffix(name)
				p.NameSuffix = Text(Find(name, "suffix"))
			}
		}
		if p.FormCode == nil {
			p.FormCode = BuildCodedConcept(Find(level, "formCode"))
		}
		if p.GenericName == "" {
			p.GenericName = Text(FindPath(level, "asEntityWithGeneric/genericMedicine/name"))
		}
	}

	for _, level := range core {
		if len(FindAll(level, "ingredient")) > 0 {
			p.Ingredients = r.extractIngredients(level)
			break
		}
	}
	for _, level := range core {
		if pkgs := r.extractPackaging(level, sectionID, 0); len(pkgs) > 0 {
			p.Packaging = pkgs
			break
		}
	}

	// outer first: it is where SPL places subjectOf and consumedIn
	for _, level := range nonNil(outer, inner) {
		p.MarketingInfo = mergeMarketing(p.MarketingInfo, extractMarketing(level))
		p.ApprovalInfo = mergeApproval(p.ApprovalInfo, extractApproval(level))
		for _, route := range extractRoutes(level) {
			if !hasRoute(p.Routes, route) {
				p.Routes = append(p.Routes, route)
			}
		}
	}
	return p
}

func nonNil(levels ...*etree.Element) []*etree.Element {
	out := make([]*etree.Element, 0, len(levels))
	for _, l := range levels {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// nameWithoutSuffix returns the text of a name element, leaving out its suffix child.
func nameWithoutSuffix(name *etree.Element) string {
	var b strings.Builder
	for _, node := range name.Child {
		switch token := node.(type) {
		case *etree.CharData:
			b.WriteString(token.Data)
		case *etree.Element:
			if token.Tag != "suffix" {
				b.WriteString(Text(token))
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (r *run) extractPackaging(level *etree.Element, sectionID string, depth int) []entities.PackageInfo {
	if depth >= maxPackagingDepth {
		return nil
	}
	var out []entities.PackageInfo
	for _, content := range FindAll(level, "asContent") {
		pkg := entities.PackageInfo{}
		if q := Find(content, "quantity"); q != nil {
			qty, err := BuildQuantity(q)
			if err != nil {
				r.errs.add("section %s: packaging quantity: %v", sectionID, err)
			}
			pkg.Quantity = qty
		}
		container := Find(content, "containerPackagedProduct")
		pkg.PackageCode = BuildCodedConcept(Find(container, "code"))
		pkg.FormCode = BuildCodedConcept(Find(container, "formCode"))
		out = append(out, pkg)
		if container != nil {
			out = append(out, r.extractPackaging(container, sectionID, depth+1)...)
		}
	}
	return out
}

func extractMarketing(level *etree.Element) *entities.MarketingInfo {
	for _, act := range FindAllPath(level, "subjectOf/marketingAct") {
		m := &entities.MarketingInfo{
			Code:      BuildCodedConcept(Find(act, "code")),
			Status:    PathAttr(act, "statusCode", "code"),
			StartDate: PathAttr(act, "effectiveTime/low", "value"),
			EndDate:   PathAttr(act, "effectiveTime/high", "value"),
		}
		if *m != (entities.MarketingInfo{}) {
			return m
		}
	}
	return nil
}

func extractApproval(level *etree.Element) *entities.ApprovalInfo {
	for _, ap := range FindAllPath(level, "subjectOf/approval") {
		id := Find(ap, "id")
		a := &entities.ApprovalInfo{
			ApprovalID: Attr(id, "extension"),
			Code:       BuildCodedConcept(Find(ap, "code")),
			Territory:  PathAttr(ap, "author/territorialAuthority/territory/code", "code"),
		}
		if a.ApprovalID == "" {
			a.ApprovalID = Attr(id, "root")
		}
		if *a != (entities.ApprovalInfo{}) {
			return a
		}
	}
	return nil
}

func extractRoutes(level *etree.Element) []entities.RouteOfAdministration {
	var out []entities.RouteOfAdministration
	for _, consumed := range FindAll(level, "consumedIn") {
		code := BuildCodedConcept(FindPath(consumed, "substanceAdministration/routeCode"))
		if code != nil {
			out = append(out, entities.RouteOfAdministration{RouteCode: code})
		}
	}
	return out
}

func hasRoute(routes []entities.RouteOfAdministration, r entities.RouteOfAdministration) bool {
	for _, existing := range routes {
		if existing.RouteCode.Equal(r.RouteCode) {
			return true
		}
	}
	return false
}

// mergeMarketing keeps the fields of base and fills the empty ones from extra.
func mergeMarketing(base, extra *entities.MarketingInfo) *entities.MarketingInfo {
	if base == nil {
		return extra
	}
	if extra == nil {
		return base
	}
	merged := *base
	if merged.Code == nil {
		merged.Code = extra.Code
	}
	if merged.Status == "" {
		merged.Status = extra.Status
	}
	if merged.StartDate == "" {
		merged.StartDate = extra.StartDate
	}
	if merged.EndDate == "" {
		merged.EndDate = extra.EndDate
	}
	return &merged
}

func mergeApproval(base, extra *entities.ApprovalInfo) *entities.ApprovalInfo {
	if base == nil {
		return extra
	}
	if extra == nil {
		return base
	}
	merged := *base
	if merged.ApprovalID == "" {
		merged.ApprovalID = extra.ApprovalID
	}
	if merged.Code == nil {
		merged.Code = extra.Code
	}
	if merged.Territory == "" {
		merged.Territory = extra.Territory
	}
	return &merged
}
