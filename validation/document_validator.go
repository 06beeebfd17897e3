// Package validation checks parsed SPL documents for structural problems and
// for gaps that matter to downstream consumers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/logging"
	"github.com/giygas/spl-labels-api/splparser/entities"
)

// KnownCodeSystems are the terminologies SPL labels are expected to reference.
var KnownCodeSystems = map[string]string{
	"2.16.840.1.113883.6.1":      "LOINC",
	"2.16.840.1.113883.6.69":     "NDC",
	"2.16.840.1.113883.3.26.1.1": "NCI Thesaurus",
	"2.16.840.1.113883.4.9":      "FDA UNII",
	"2.16.840.1.113883.5.28":     "ISO Country Codes",
	"2.16.840.1.113883.3.150":    "FDA Application Number",
}

// RequiredSectionTypes are the section types every drug label should carry.
var RequiredSectionTypes = []entities.SectionType{
	entities.SectionActiveIngredient,
	entities.SectionWarnings,
}

var dateRegex = regexp.MustCompile(`^\d{8}$`)

// DocumentValidatorImpl implements interfaces.DocumentValidator. It holds no
// state, so a single instance may validate documents concurrently.
type DocumentValidatorImpl struct{}

var _ interfaces.DocumentValidator = (*DocumentValidatorImpl)(nil)

func NewDocumentValidator() interfaces.DocumentValidator {
	return &DocumentValidatorImpl{}
}

// Validate runs both tiers and returns their combined findings.
func (v *DocumentValidatorImpl) Validate(doc *entities.SPLDocument) *entities.ValidationResult {
	result := &entities.ValidationResult{Messages: []entities.ValidationMessage{}}
	if doc == nil {
		result.AddError("document is nil", "", "SPLDocument")
		return result
	}
	v.ValidateStructure(doc, result)
	v.ValidateBusinessRules(doc, result)
	return result
}

// ValidateStructure checks required fields, identifier and date formats, the
// coded concepts and quantities of the tree, and section id uniqueness.
func (v *DocumentValidatorImpl) ValidateStructure(doc *entities.SPLDocument, result *entities.ValidationResult) {
	const ctx = "SPLDocument"

	requireField(doc.DocumentID, "document_id", ctx, result)
	requireField(doc.SetID, "set_id", ctx, result)
	requireField(doc.VersionNumber, "version_number", ctx, result)
	checkUUID(doc.DocumentID, "document_id", ctx, result)
	checkUUID(doc.SetID, "set_id", ctx, result)
	checkDate(doc.EffectiveTime, "effective_time", ctx, result)
	checkConcept(doc.DocumentCode, ctx+".document_code", result)

	if len(doc.Sections) == 0 {
		result.AddWarning("document has no sections", "sections", ctx)
	}

	seen := make(map[string]bool)
	for i := range doc.Sections {
		v.validateSection(&doc.Sections[i], fmt.Sprintf("%s.sections[%d]", ctx, i), seen, result)
	}
}

// validateSection walks a subtree in document order. seen is shared across the
// whole document so the first occurrence of an id wins everywhere.
func (v *DocumentValidatorImpl) validateSection(s *entities.SPLSection, ctx string, seen map[string]bool, result *entities.ValidationResult) {
	requireField(s.SectionID, "section_id", ctx, result)
	checkUUID(s.SectionID, "section_id", ctx, result)
	checkDate(s.EffectiveTime, "effective_time", ctx, result)
	checkConcept(s.SectionCode, ctx+".section_code", result)

	if s.SectionID != "" {
		if seen[s.SectionID] {
			result.AddError(fmt.Sprintf("duplicate section id: %s", s.SectionID), "section_id", ctx)
		}
		seen[s.SectionID] = true
	}

	if s.ManufacturedProduct != nil {
		v.validateProduct(s.ManufacturedProduct, ctx+".manufactured_product", result)
	}

	for i := range s.Subsections {
		v.validateSection(&s.Subsections[i], fmt.Sprintf("%s.subsections[%d]", ctx, i), seen, result)
	}
}

func (v *DocumentValidatorImpl) validateProduct(p *entities.ManufacturedProduct, ctx string, result *entities.ValidationResult) {
	if strings.TrimSpace(p.ProductName) == "" {
		result.AddWarning("product name is missing", "product_name", ctx)
	}
	checkConcept(p.ProductCode, ctx+".product_code", result)
	checkConcept(p.FormCode, ctx+".form_code", result)

	if len(p.Ingredients) == 0 {
		result.AddWarning("product has no ingredients", "ingredients", ctx)
	} else if len(p.ActiveIngredients()) == 0 {
		result.AddWarning("product has no active ingredients", "ingredients", ctx)
	}
	for i := range p.Ingredients {
		validateIngredient(&p.Ingredients[i], fmt.Sprintf("%s.ingredients[%d]", ctx, i), result)
	}
	for i, pkg := range p.Packaging {
		pctx := fmt.Sprintf("%s.packaging[%d]", ctx, i)
		checkQuantity(pkg.Quantity, pctx+".quantity", result)
		checkConcept(pkg.PackageCode, pctx+".package_code", result)
	}
	for i, r := range p.Routes {
		checkConcept(r.RouteCode, fmt.Sprintf("%s.routes[%d]", ctx, i), result)
	}
	if p.MarketingInfo != nil {
		checkDate(p.MarketingInfo.StartDate, "start_date", ctx+".marketing_info", result)
		checkDate(p.MarketingInfo.EndDate, "end_date", ctx+".marketing_info", result)
	}
}

func validateIngredient(ing *entities.Ingredient, ctx string, result *entities.ValidationResult) {
	if strings.TrimSpace(ing.SubstanceName) == "" {
		result.AddWarning("ingredient substance name is missing", "substance_name", ctx)
	}
	checkConcept(ing.SubstanceCode, ctx+".substance_code", result)
	if ing.IsActive() && ing.Quantity == nil {
		result.AddWarning("active ingredient missing quantity information", "quantity", ctx)
	}
	checkQuantity(ing.Quantity, ctx+".quantity", result)
	if ing.ActiveMoiety != nil {
		checkConcept(ing.ActiveMoiety.SubstanceCode, ctx+".active_moiety.substance_code", result)
	}
}

// ValidateBusinessRules emits warnings for content a complete label should carry.
func (v *DocumentValidatorImpl) ValidateBusinessRules(doc *entities.SPLDocument, result *entities.ValidationResult) {
	const ctx = "SPLDocument.business_rules"

	missing := lo.Filter(RequiredSectionTypes, func(t entities.SectionType, _ int) bool {
		return len(doc.SectionsByType(t)) == 0
	})
	if len(missing) > 0 {
		names := lo.Map(missing, func(t entities.SectionType, _ int) string { return string(t) })
		result.AddWarning("missing recommended sections: "+strings.Join(names, ", "), "sections", ctx)
	}
	if len(doc.ManufacturedProducts()) == 0 {
		result.AddWarning("document contains no manufactured products", "manufactured_products", ctx)
	}
	if len(doc.ActiveIngredients()) == 0 {
		result.AddWarning("document contains no active ingredients", "active_ingredients", ctx)
	}
}

// ReportQuality aggregates the findings of a set of documents
func (v *DocumentValidatorImpl) ReportQuality(documents []*entities.SPLDocument) *interfaces.IngestReport {
	report := &interfaces.IngestReport{
		DocumentsParsed:      len(documents),
		ParseFailures:        []string{},
		InvalidDocuments:     []string{},
		DuplicateDocumentIDs: []string{},
	}
	seen := make(map[string]bool, len(documents))
	for _, doc := range documents {
		if seen[doc.DocumentID] {
			report.DuplicateDocumentIDs = append(report.DuplicateDocumentIDs, doc.DocumentID)
		}
		seen[doc.DocumentID] = true

		if !v.Validate(doc).IsValid() {
			report.InvalidDocuments = append(report.InvalidDocuments, doc.DocumentID)
		}
		if len(doc.ManufacturedProducts()) == 0 {
			report.DocumentsWithoutProducts++
		}
		if len(doc.ActiveIngredients()) == 0 {
			report.DocumentsWithoutActiveIngredients++
		}
		report.TotalProcessingErrors += len(doc.ProcessingErrors)
	}

	if len(report.DuplicateDocumentIDs) > 0 {
		logging.Error("Duplicate document ids detected",
			"count", len(report.DuplicateDocumentIDs),
			"sample", lo.Slice(report.DuplicateDocumentIDs, 0, 5))
	}
	return report
}

func requireField(value, field, ctx string, result *entities.ValidationResult) {
	if strings.TrimSpace(value) == "" {
		result.AddError(fmt.Sprintf("required field %q is missing or empty", field), field, ctx)
	}
}

// IsUUID reports whether s is a canonical 8-4-4-4-12 hexadecimal UUID.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func checkUUID(value, field, ctx string, result *entities.ValidationResult) {
	if value == "" || IsUUID(value) {
		return
	}
	result.AddError(fmt.Sprintf("field %q is not a valid UUID", field), field, ctx)
}

// checkDate warns on values that are not eight digits and rejects eight-digit
// values that are not calendar dates.
func checkDate(value, field, ctx string, result *entities.ValidationResult) {
	if value == "" {
		return
	}
	if !dateRegex.MatchString(value) {
		result.AddWarning(fmt.Sprintf("field %q does not match date format YYYYMMDD", field), field, ctx)
		return
	}
	if _, err := time.Parse("20060102", value); err != nil {
		result.AddError(fmt.Sprintf("field %q is not a valid date", field), field, ctx)
	}
}

func checkConcept(c *entities.CodedConcept, ctx string, result *entities.ValidationResult) {
	if c == nil {
		return
	}
	requireField(c.Code, "code", ctx, result)
	requireField(c.CodeSystem, "code_system", ctx, result)
	if _, ok := KnownCodeSystems[c.CodeSystem]; c.CodeSystem != "" && !ok {
		result.AddInfo(fmt.Sprintf("unknown code system: %s", c.CodeSystem), "code_system", ctx)
	}
}

func checkQuantity(q *entities.Quantity, ctx string, result *entities.ValidationResult) {
	if q == nil {
		return
	}
	if q.NumeratorValue <= 0 {
		result.AddError("numerator value must be positive", "numerator_value", ctx)
	}
	if q.DenominatorValue <= 0 {
		result.AddError("denominator value must be positive", "denominator_value", ctx)
	}
	if q.NumeratorUnit == "" {
		result.AddWarning("numerator unit is missing", "numerator_unit", ctx)
	}
}
