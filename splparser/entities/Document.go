package entities

// SPLDocument is the root aggregate produced by one parse call.
type SPLDocument struct {
	DocumentID       string          `json:"document_id"`
	SetID            string          `json:"set_id"`
	VersionNumber    string          `json:"version_number"`
	DocumentCode     *CodedConcept   `json:"document_code,omitempty"`
	Title            string          `json:"title,omitempty"`
	EffectiveTime    string          `json:"effective_time,omitempty"`
	Author           *DocumentAuthor `json:"author,omitempty"`
	Sections         []SPLSection    `json:"sections"`
	ProcessingErrors []string        `json:"processing_errors"`
}

// Walk visits every section of the document in document order (pre-order).
func (d *SPLDocument) Walk(fn func(*SPLSection) bool) {
	for i := range d.Sections {
		if !d.Sections[i].Walk(fn) {
			return
		}
	}
}

// SectionCount returns the number of sections in the whole tree.
func (d *SPLDocument) SectionCount() int {
	n := 0
	d.Walk(func(*SPLSection) bool {
		n++
		return true
	})
	return n
}

// SectionsByType returns every section of the given type, nested ones included.
func (d *SPLDocument) SectionsByType(t SectionType) []*SPLSection {
	var out []*SPLSection
	d.Walk(func(s *SPLSection) bool {
		if s.SectionType == t {
			out = append(out, s)
		}
		return true
	})
	return out
}

// ManufacturedProducts returns the products attached anywhere in the tree.
func (d *SPLDocument) ManufacturedProducts() []*ManufacturedProduct {
	var out []*ManufacturedProduct
	d.Walk(func(s *SPLSection) bool {
		if s.ManufacturedProduct != nil {
			out = append(out, s.ManufacturedProduct)
		}
		return true
	})
	return out
}

// ActiveIngredients returns the active ingredients of every product.
func (d *SPLDocument) ActiveIngredients() []Ingredient {
	var out []Ingredient
	for _, p := range d.ManufacturedProducts() {
		out = append(out, p.ActiveIngredients()...)
	}
	return out
}

// SectionTextByType returns the text of the first section of type t that has text.
func (d *SPLDocument) SectionTextByType(t SectionType) (string, bool) {
	var text string
	found := false
	d.Walk(func(s *SPLSection) bool {
		if s.SectionType == t && s.TextContent != "" {
			text, found = s.TextContent, true
			return false
		}
		return true
	})
	return text, found
}

// FindSection returns the first section with the given id.
func (d *SPLDocument) FindSection(id string) *SPLSection {
	var hit *SPLSection
	d.Walk(func(s *SPLSection) bool {
		if s.SectionID == id {
			hit = s
			return false
		}
		return true
	})
	return hit
}
