package splparser

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

func newTestParser(opts ...Option) *Parser {
	base := []Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return NewParser(append(base, opts...)...)
}

func mustParse(t *testing.T, p *Parser, xml string) *entities.ParseResult {
	t.Helper()
	res, err := p.ParseString(xml)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return res
}

func countContaining(messages []string, substr string) int {
	n := 0
	for _, m := range messages {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

func TestParseFullLabel(t *testing.T) {
	res := mustParse(t, newTestParser(), fullLabel)
	doc := res.Document

	if doc.DocumentID != docUUID || doc.SetID != docUUID {
		t.Errorf("identity = %q/%q, want %q", doc.DocumentID, doc.SetID, docUUID)
	}
	if doc.VersionNumber != "3" {
		t.Errorf("VersionNumber = %q, want 3", doc.VersionNumber)
	}
	if doc.DocumentCode == nil || doc.DocumentCode.Code != "34390-5" {
		t.Errorf("DocumentCode = %+v", doc.DocumentCode)
	}
	if doc.Title != "Aspirin Tablets" || doc.EffectiveTime != "20240115" {
		t.Errorf("Title/EffectiveTime = %q/%q", doc.Title, doc.EffectiveTime)
	}

	if doc.Author == nil {
		t.Fatal("Author is nil")
	}
	if len(doc.Author.Organizations) != 2 {
		t.Fatalf("Organizations = %d, want 2", len(doc.Author.Organizations))
	}
	if doc.Author.Labeler().Name != "Acme Pharma" || doc.Author.Organizations[1].IDExtension != "987654321" {
		t.Errorf("unexpected organizations %+v", doc.Author.Organizations)
	}

	if len(doc.Sections) != 3 {
		t.Fatalf("top-level sections = %d, want 3", len(doc.Sections))
	}
	if doc.SectionCount() != 4 {
		t.Errorf("SectionCount() = %d, want 4", doc.SectionCount())
	}
	if len(doc.ProcessingErrors) != 0 {
		t.Errorf("ProcessingErrors = %v, want none", doc.ProcessingErrors)
	}
	if !res.IsValid() {
		t.Errorf("expected a valid result, got %v", res.Validation.Strings())
	}
}

func TestParseProductListing(t *testing.T) {
	doc := mustParse(t, newTestParser(), fullLabel).Document
	listing := doc.FindSection(listingUUID)
	if listing == nil {
		t.Fatal("listing section not found")
	}
	if listing.SectionType != entities.SectionSPLListing {
		t.Errorf("SectionType = %q", listing.SectionType)
	}
	p := listing.ManufacturedProduct
	if p == nil {
		t.Fatal("ManufacturedProduct is nil")
	}

	if p.ProductName != "Aspirin" || p.NameSuffix != "Regular Strength" {
		t.Errorf("name = %q suffix = %q", p.ProductName, p.NameSuffix)
	}
	if p.FullName() != "Aspirin Regular Strength" {
		t.Errorf("FullName() = %q", p.FullName())
	}
	if p.ProductCode == nil || p.ProductCode.Code != "12345-678" {
		t.Errorf("ProductCode = %+v", p.ProductCode)
	}
	if p.FormCode == nil || p.FormCode.DisplayName != "TABLET" {
		t.Errorf("FormCode = %+v", p.FormCode)
	}
	if p.GenericName != "aspirin" {
		t.Errorf("GenericName = %q", p.GenericName)
	}

	if len(p.Ingredients) != 2 {
		t.Fatalf("Ingredients = %d, want 2", len(p.Ingredients))
	}
	active := p.Ingredients[0]
	if !active.IsActive() || active.SubstanceName != "ASPIRIN" {
		t.Errorf("first ingredient = %+v", active)
	}
	if active.Quantity == nil || active.Quantity.NumeratorValue != 325 || active.Quantity.NumeratorUnit != "mg" {
		t.Errorf("active quantity = %+v", active.Quantity)
	}
	if active.ActiveMoiety == nil || active.ActiveMoiety.SubstanceCode.Code != "R16CO5Y76E" {
		t.Errorf("ActiveMoiety = %+v", active.ActiveMoiety)
	}
	if active.ActiveMoiety != nil && active.ActiveMoiety.Quantity != nil {
		t.Error("active moiety must not carry a quantity")
	}
	if inactive := p.Ingredients[1]; inactive.IsActive() || inactive.ActiveMoiety != nil {
		t.Errorf("second ingredient = %+v", inactive)
	}

	if len(p.Packaging) != 1 || p.Packaging[0].PackageCode.Code != "12345-678-01" || p.Packaging[0].Quantity.NumeratorValue != 100 {
		t.Errorf("Packaging = %+v", p.Packaging)
	}
	if p.MarketingInfo == nil || p.MarketingInfo.Status != "active" || p.MarketingInfo.StartDate != "20200101" {
		t.Errorf("MarketingInfo = %+v", p.MarketingInfo)
	}
	if p.ApprovalInfo == nil || p.ApprovalInfo.ApprovalID != "M013" || p.ApprovalInfo.Territory != "USA" {
		t.Errorf("ApprovalInfo = %+v", p.ApprovalInfo)
	}
	if len(p.Routes) != 1 || p.Routes[0].RouteCode.DisplayName != "ORAL" {
		t.Errorf("Routes = %+v", p.Routes)
	}

	actives := doc.ActiveIngredients()
	if len(actives) != 1 || actives[0].SubstanceName != "ASPIRIN" {
		t.Errorf("ActiveIngredients() = %+v", actives)
	}
}

func TestParseClinicalSections(t *testing.T) {
	doc := mustParse(t, newTestParser(), fullLabel).Document

	warnings := doc.FindSection(warningsUUID)
	if warnings == nil {
		t.Fatal("warnings section not found")
	}
	wantText := "Reye's syndrome: Children and teenagers should not use this medicine.\n• hives\n• facial swelling"
	if warnings.TextContent != wantText {
		t.Errorf("TextContent = %q, want %q", warnings.TextContent, wantText)
	}
	if warnings.EffectiveTime != "20240115" {
		t.Errorf("EffectiveTime = %q", warnings.EffectiveTime)
	}

	if len(warnings.MediaReferences) != 2 {
		t.Fatalf("MediaReferences = %+v, want 2", warnings.MediaReferences)
	}
	inline, block := warnings.MediaReferences[0], warnings.MediaReferences[1]
	if inline.MediaID != "MM1" || inline.MediaType != "image/jpeg" || inline.ReferenceValue != "MM1" {
		t.Errorf("inline reference = %+v", inline)
	}
	if block.MediaID != "MM1" || block.ReferenceValue != "label.jpg" || block.Description != "Package label" {
		t.Errorf("block reference = %+v", block)
	}

	if len(warnings.Subsections) != 1 {
		t.Fatalf("Subsections = %d, want 1", len(warnings.Subsections))
	}
	ask := warnings.Subsections[0]
	if ask.SectionID != askUUID || ask.SectionType != entities.SectionAskDoctor || ask.TextContent != "stomach bleeding" {
		t.Errorf("subsection = %+v", ask)
	}

	text, ok := doc.SectionTextByType(entities.SectionActiveIngredient)
	if !ok || text != "Aspirin 325 mg" {
		t.Errorf("SectionTextByType(ACTIVE_INGREDIENT) = %q, %v", text, ok)
	}
	if got := doc.SectionsByType(entities.SectionAskDoctor); len(got) != 1 {
		t.Errorf("SectionsByType(ASK_DOCTOR) = %d, want 1", len(got))
	}
}

func TestNamespaceTolerance(t *testing.T) {
	p := newTestParser()
	plain := mustParse(t, p, fullLabel).Document
	prefixed := mustParse(t, p, withPrefix(fullLabel)).Document

	if !strings.Contains(withPrefix(fullLabel), "<hl7:document") {
		t.Fatal("fixture was not rewritten with a prefix")
	}
	if !reflect.DeepEqual(plain, prefixed) {
		t.Errorf("prefixed document differs from default namespace document")
	}
}

func TestParseUnqualifiedDocument(t *testing.T) {
	unqualified := strings.Replace(labelWith(section(activeUUID, "55106-9", "<title>Active</title>")), ` xmlns="urn:hl7-org:v3"`, "", 1)
	res := mustParse(t, newTestParser(), unqualified)
	if len(res.Document.Sections) != 1 || res.Document.Sections[0].SectionType != entities.SectionActiveIngredient {
		t.Errorf("sections = %+v", res.Document.Sections)
	}
}

func TestParseMinimalDocument(t *testing.T) {
	xml := `<document xmlns="urn:hl7-org:v3">
  <id root="` + docUUID + `"/>
  <code code="34391-3" codeSystem="2.16.840.1.113883.6.1"/>
  <setId root="` + listingUUID + `"/>
  <versionNumber value="1"/>
  <component><structuredBody>
    <component><section>
      <id root="` + warningsUUID + `"/>
      <code code="34071-1" codeSystem="2.16.840.1.113883.6.1"/>
      <title>Warnings</title>
      <text><paragraph>Do not exceed dose.</paragraph></text>
    </section></component>
  </structuredBody></component>
</document>`

	res := mustParse(t, newTestParser(), xml)
	doc := res.Document
	if doc.SetID != listingUUID || doc.VersionNumber != "1" {
		t.Errorf("identity = %+v", doc)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(doc.Sections))
	}
	s := doc.Sections[0]
	if s.SectionType != entities.SectionWarnings || s.Title != "Warnings" || s.TextContent != "Do not exceed dose." {
		t.Errorf("section = %+v", s)
	}
	if s.ManufacturedProduct != nil || len(s.Subsections) != 0 || len(s.MediaReferences) != 0 {
		t.Errorf("unexpected section content %+v", s)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}

	// no ACTIVE_INGREDIENT section, no product and no active ingredient
	if got := len(res.Validation.Warnings()); got != 3 {
		t.Errorf("warnings = %v, want 3", res.Validation.Strings())
	}
	if !res.IsValid() {
		t.Errorf("document should be valid: %v", res.Validation.Strings())
	}
}

func TestParseUnknownSectionCode(t *testing.T) {
	xml := labelWith(section(activeUUID, "99999-9", `<title>Other</title><text>Plain note.</text>`))
	res := mustParse(t, newTestParser(), xml)
	s := res.Document.Sections[0]
	if s.SectionType != "" {
		t.Errorf("SectionType = %q, want empty", s.SectionType)
	}
	if s.SectionCode == nil || s.SectionCode.Code != "99999-9" {
		t.Errorf("SectionCode = %+v", s.SectionCode)
	}
	if s.TextContent != "Plain note." {
		t.Errorf("TextContent = %q", s.TextContent)
	}
	if len(res.Errors) != 0 {
		t.Errorf("an unknown code is not an error: %v", res.Errors)
	}
}

func TestParseFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		kind error
	}{
		{"malformed", `<document xmlns="urn:hl7-org:v3"><id root="x">`, ErrMalformedXML},
		{"empty", ``, ErrMalformedXML},
		{"wrong root", `<root xmlns="urn:hl7-org:v3"><id root="x"/></root>`, ErrNotSPLDocument},
		{"foreign namespace", `<document xmlns="urn:other"><id root="x"/><code code="a" codeSystem="b"/></document>`, ErrNotSPLDocument},
		{"missing id", `<document xmlns="urn:hl7-org:v3"><code code="a" codeSystem="b"/></document>`, ErrMissingIdentity},
		{"missing code", `<document xmlns="urn:hl7-org:v3"><id root="x"/></document>`, ErrMissingIdentity},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.ParseString(tt.xml)
			if err == nil {
				t.Fatal("expected an error")
			}
			if res != nil {
				t.Error("no partial result may accompany a fatal error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("error %v is not %v", err, tt.kind)
			}
		})
	}
}

func TestMissingSetIDDefaultsToDocumentID(t *testing.T) {
	xml := `<document xmlns="urn:hl7-org:v3">
  <id root="` + docUUID + `"/>
  <code code="34390-5" codeSystem="2.16.840.1.113883.6.1"/>
  <versionNumber value="2"/>
</document>`

	res := mustParse(t, newTestParser(), xml)
	if res.Document.SetID != docUUID {
		t.Errorf("SetID = %q, want %q", res.Document.SetID, docUUID)
	}
	if countContaining(res.Errors, "setId missing") != 1 {
		t.Errorf("Errors = %v, want one setId error", res.Errors)
	}
	if countContaining(res.Document.ProcessingErrors, "setId missing") != 1 {
		t.Errorf("ProcessingErrors = %v", res.Document.ProcessingErrors)
	}
}

func TestStrictIdentity(t *testing.T) {
	xml := `<document xmlns="urn:hl7-org:v3">
  <id root="` + docUUID + `"/>
  <code code="34390-5" codeSystem="2.16.840.1.113883.6.1"/>
  <setId root="` + docUUID + `"/>
</document>`

	lenient := mustParse(t, newTestParser(), xml)
	if lenient.Document.VersionNumber != "1" {
		t.Errorf("VersionNumber = %q, want default 1", lenient.Document.VersionNumber)
	}

	_, err := newTestParser(WithOptions(Options{StrictIdentity: true})).ParseString(xml)
	if !errors.Is(err, ErrMissingIdentity) {
		t.Errorf("strict parse error = %v, want ErrMissingIdentity", err)
	}
}

func TestIngredientDiscarded(t *testing.T) {
	ingredients := ingredient("ACTIM", `<quantity><numerator value="5" unit="mg"/></quantity><ingredientSubstance/>`) +
		ingredient("IACT", `<ingredientSubstance><name>WATER</name></ingredientSubstance>`) +
		ingredient("XYZ", `<ingredientSubstance><name>MYSTERY</name></ingredientSubstance>`)
	xml := labelWith(section(listingUUID, "48780-1", product("Syrup", ingredients)))

	res := mustParse(t, newTestParser(), xml)
	p := res.Document.Sections[0].ManufacturedProduct
	if p == nil {
		t.Fatal("product missing")
	}
	if len(p.Ingredients) != 1 || p.Ingredients[0].SubstanceName != "WATER" {
		t.Errorf("Ingredients = %+v, want only WATER", p.Ingredients)
	}
	if countContaining(res.Errors, "discarded") != 1 {
		t.Errorf("Errors = %v, want one discarded ingredient", res.Errors)
	}
	if countContaining(res.Errors, `unknown classCode "XYZ"`) != 1 {
		t.Errorf("Errors = %v, want one unknown classCode", res.Errors)
	}
}

func TestIngredientClassCodes(t *testing.T) {
	tests := []struct {
		code string
		want entities.IngredientKind
		ok   bool
	}{
		{"ACTIM", entities.IngredientActive, true},
		{"ACTIB", entities.IngredientActive, true},
		{"actir", entities.IngredientActive, true},
		{"IACT", entities.IngredientInactive, true},
		{"", "", false},
		{"INGR", "", false},
	}
	for _, tt := range tests {
		got, ok := ingredientKind(tt.code)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ingredientKind(%q) = %q, %v; want %q, %v", tt.code, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIngredientInvalidQuantityKeepsIngredient(t *testing.T) {
	ing := ingredient("ACTIM", `<quantity><numerator value="abc" unit="mg"/></quantity><ingredientSubstance><name>ZINC</name></ingredientSubstance>`)
	res := mustParse(t, newTestParser(), labelWith(section(listingUUID, "48780-1", product("Lozenge", ing))))

	ings := res.Document.Sections[0].ManufacturedProduct.Ingredients
	if len(ings) != 1 || ings[0].Quantity != nil {
		t.Errorf("Ingredients = %+v, want ZINC without quantity", ings)
	}
	if countContaining(res.Errors, "invalid numerator") != 1 {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestInvalidDenominatorIsRecoverable(t *testing.T) {
	ing := ingredient("ACTIM", `<quantity><numerator value="5" unit="mg"/><denominator value="abc" unit="1"/></quantity>`+
		`<ingredientSubstance><name>ZINC</name></ingredientSubstance>`)
	pkg := `<asContent><quantity><numerator value="20" unit="1"/><denominator value="n/a" unit="1"/></quantity>` +
		`<containerPackagedProduct><code code="0002-01" codeSystem="2.16.840.1.113883.6.69"/></containerPackagedProduct></asContent>`
	res := mustParse(t, newTestParser(), labelWith(section(listingUUID, "48780-1", product("Lozenge", ing+pkg))))

	p := res.Document.Sections[0].ManufacturedProduct
	if len(p.Ingredients) != 1 || p.Ingredients[0].Quantity == nil {
		t.Fatalf("Ingredients = %+v, want ZINC with a quantity", p.Ingredients)
	}
	if q := p.Ingredients[0].Quantity; q.NumeratorValue != 5 || q.DenominatorValue != 1 || q.DenominatorUnit != "1" {
		t.Errorf("ingredient quantity = %+v, want 5 mg per 1 (1)", q)
	}
	if len(p.Packaging) != 1 || p.Packaging[0].Quantity == nil || p.Packaging[0].Quantity.DenominatorValue != 1 {
		t.Errorf("Packaging = %+v, want a quantity with denominator 1", p.Packaging)
	}
	if got := countContaining(res.Errors, "invalid denominator value"); got != 2 {
		t.Errorf("Errors = %v, want 2 denominator errors", res.Errors)
	}
	if countContaining(res.Errors, `"abc"`) != 1 {
		t.Errorf("Errors = %v, want the offending value quoted", res.Errors)
	}
}

func TestDuplicateSectionIDs(t *testing.T) {
	nested := section(activeUUID, "34071-1", `<title>Nested</title>`)
	xml := labelWith(
		section(activeUUID, "55106-9", `<title>First</title>`),
		section(warningsUUID, "34071-1", `<title>Warnings</title>`+nested),
		section(activeUUID, "50569-3", `<title>Third</title>`),
	)

	res := mustParse(t, newTestParser(), xml)
	if got := res.Document.SectionCount(); got != 4 {
		t.Errorf("SectionCount() = %d, want every duplicate kept", got)
	}
	if got := len(res.Document.SectionsByType(entities.SectionAskDoctor)); got != 1 {
		t.Errorf("third section missing")
	}

	var dups []string
	for _, m := range res.Validation.Errors() {
		if strings.Contains(m.Message, "duplicate section id") {
			dups = append(dups, m.Context)
		}
	}
	if len(dups) != 2 {
		t.Fatalf("duplicate errors = %v, want 2", dups)
	}
	if !strings.Contains(dups[0], "subsections[0]") {
		t.Errorf("first duplicate reported at %q, want the nested section", dups[0])
	}
	if res.IsValid() {
		t.Error("duplicate ids make the document invalid")
	}
}

func TestSectionWithoutIDIsDropped(t *testing.T) {
	xml := labelWith(
		section("", "34071-1", `<title>Lost</title>`+section(askUUID, "50569-3", "")),
		section(activeUUID, "55106-9", `<title>Kept</title>`),
	)
	res := mustParse(t, newTestParser(), xml)
	if res.Document.SectionCount() != 1 || res.Document.Sections[0].SectionID != activeUUID {
		t.Errorf("sections = %+v", res.Document.Sections)
	}
	if countContaining(res.Errors, "has no id") != 1 {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestSectionWithoutCode(t *testing.T) {
	res := mustParse(t, newTestParser(), labelWith(section(activeUUID, "", `<title>No code</title>`)))
	s := res.Document.Sections[0]
	if s.SectionCode != nil || s.SectionType != "" {
		t.Errorf("section = %+v", s)
	}
	if countContaining(res.Errors, "missing or incomplete section code") != 1 {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestMaxSectionDepth(t *testing.T) {
	deepest := section(askUUID, "50569-3", "")
	middle := section(warningsUUID, "34071-1", deepest)
	xml := labelWith(section(activeUUID, "55106-9", middle))

	res := mustParse(t, newTestParser(WithOptions(Options{MaxSectionDepth: 2})), xml)
	if got := res.Document.SectionCount(); got != 2 {
		t.Errorf("SectionCount() = %d, want 2", got)
	}
	if res.Document.FindSection(askUUID) != nil {
		t.Error("section beyond the depth limit should be skipped")
	}
	if countContaining(res.Errors, "exceeds maximum depth 2") != 1 {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestMaxErrors(t *testing.T) {
	var sections []string
	for i := 0; i < 5; i++ {
		sections = append(sections, section("", "34071-1", ""))
	}
	res := mustParse(t, newTestParser(WithOptions(Options{MaxErrors: 2})), labelWith(sections...))
	if len(res.Errors) != 3 {
		t.Fatalf("Errors = %v, want 2 kept plus a suppression note", res.Errors)
	}
	if res.Errors[2] != "3 further errors suppressed" {
		t.Errorf("last error = %q", res.Errors[2])
	}
}

func TestMultipleProductsInSection(t *testing.T) {
	xml := labelWith(section(listingUUID, "48780-1",
		product("First", ingredient("ACTIM", `<ingredientSubstance><name>A</name></ingredientSubstance>`))+
			product("Second", ingredient("ACTIM", `<ingredientSubstance><name>B</name></ingredientSubstance>`))))

	res := mustParse(t, newTestParser(), xml)
	if p := res.Document.Sections[0].ManufacturedProduct; p == nil || p.ProductName != "First" {
		t.Errorf("attached product = %+v, want First", p)
	}
	if countContaining(res.Errors, `additional manufactured product "Second"`) != 1 {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestProductWithoutInnerLevel(t *testing.T) {
	subject := `<subject><manufacturedProduct><name>Flat</name>` +
		ingredient("ACTIM", `<ingredientSubstance><name>A</name></ingredientSubstance>`) +
		`</manufacturedProduct></subject>`
	res := mustParse(t, newTestParser(), labelWith(section(listingUUID, "48780-1", subject)))
	p := res.Document.Sections[0].ManufacturedProduct
	if p == nil || p.ProductName != "Flat" || len(p.Ingredients) != 1 {
		t.Errorf("product = %+v", p)
	}
}

func TestProductInnerLevelTakesPrecedence(t *testing.T) {
	subject := `<subject><manufacturedProduct>
  <name>Outer</name>
  <formCode code="C1" codeSystem="2.16.840.1.113883.3.26.1.1"/>
  <manufacturedProduct><name>Inner</name></manufacturedProduct>
  <subjectOf><marketingAct><statusCode code="active"/></marketingAct></subjectOf>
</manufacturedProduct></subject>`
	res := mustParse(t, newTestParser(), labelWith(section(listingUUID, "48780-1", subject)))
	p := res.Document.Sections[0].ManufacturedProduct
	if p.ProductName != "Inner" {
		t.Errorf("ProductName = %q, want Inner", p.ProductName)
	}
	if p.FormCode == nil || p.FormCode.Code != "C1" {
		t.Errorf("FormCode = %+v, want fallback to outer level", p.FormCode)
	}
	if p.MarketingInfo == nil || p.MarketingInfo.Status != "active" {
		t.Errorf("MarketingInfo = %+v", p.MarketingInfo)
	}
}

func TestNestedPackaging(t *testing.T) {
	pkg := `<asContent>
  <quantity><numerator value="10" unit="1"/><denominator value="1" unit="1"/></quantity>
  <containerPackagedProduct>
    <code code="0001-01" codeSystem="2.16.840.1.113883.6.69"/>
    <asContent>
      <quantity><numerator value="2" unit="1"/></quantity>
      <containerPackagedProduct><code code="0001-02" codeSystem="2.16.840.1.113883.6.69"/></containerPackagedProduct>
    </asContent>
  </containerPackagedProduct>
</asContent>`
	res := mustParse(t, newTestParser(), labelWith(section(listingUUID, "48780-1", product("Boxed", pkg))))
	packaging := res.Document.Sections[0].ManufacturedProduct.Packaging
	if len(packaging) != 2 {
		t.Fatalf("Packaging = %+v, want 2 levels", packaging)
	}
	if packaging[0].PackageCode.Code != "0001-01" || packaging[1].PackageCode.Code != "0001-02" {
		t.Errorf("package codes = %s, %s", packaging[0].PackageCode.Code, packaging[1].PackageCode.Code)
	}
	if packaging[1].Quantity.DenominatorValue != 1.0 {
		t.Errorf("missing denominator should default to 1, got %v", packaging[1].Quantity.DenominatorValue)
	}
}

func TestMediaWithoutReferenceIsSkipped(t *testing.T) {
	inner := `<text><renderMultiMedia referencedObject="MM9"/></text>
<component><observationMedia ID="MM9"><value mediaType="image/png"/></observationMedia></component>
<component><observationMedia><value><reference value="b.png"/></value></observationMedia></component>`
	res := mustParse(t, newTestParser(), labelWith(section(warningsUUID, "34071-1", inner)))
	refs := res.Document.Sections[0].MediaReferences
	if len(refs) != 2 {
		t.Fatalf("MediaReferences = %+v, want 2", refs)
	}
	if refs[0].MediaID != "MM9" || refs[0].MediaType != "reference" {
		t.Errorf("inline reference = %+v", refs[0])
	}
	if refs[1].MediaID != "media_1" || refs[1].MediaType != "unknown" || refs[1].ReferenceValue != "b.png" {
		t.Errorf("generated block reference = %+v", refs[1])
	}
	if countContaining(res.Errors, "no reference value") != 1 {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestDeclaredCharset(t *testing.T) {
	xml := `<?xml version="1.0" encoding="ISO-8859-1"?>` + labelWith(section(listingUUID, "48780-1",
		product("Caf\xe9 Tabs", ingredient("ACTIM", "<ingredientSubstance><name>CAFF\xc9INE</name></ingredientSubstance>"))))
	res, err := newTestParser().Parse([]byte(xml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	p := res.Document.Sections[0].ManufacturedProduct
	if p.ProductName != "Café Tabs" {
		t.Errorf("ProductName = %q", p.ProductName)
	}
	if p.Ingredients[0].SubstanceName != "CAFFÉINE" {
		t.Errorf("SubstanceName = %q", p.Ingredients[0].SubstanceName)
	}
}

func TestByteOrderMarkAndEntities(t *testing.T) {
	xml := "\xEF\xBB\xBF" + labelWith(section(warningsUUID, "34071-1", `<text><paragraph>a&nbsp;b &amp; c&reg;</paragraph></text>`))
	res, err := newTestParser().Parse([]byte(xml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := res.Document.Sections[0].TextContent; got != "a b & c®" {
		t.Errorf("TextContent = %q", got)
	}
}

func TestEscapedEntitiesDecodedOnce(t *testing.T) {
	xml := labelWith(section(warningsUUID, "34071-1", `<text><paragraph>Type &amp;lt;b&amp;gt; and &amp;copy; literally</paragraph></text>`))
	res := mustParse(t, newTestParser(), xml)
	if got := res.Document.Sections[0].TextContent; got != "Type &lt;b&gt; and &copy; literally" {
		t.Errorf("TextContent = %q", got)
	}
}

func TestSubstanceCacheFilled(t *testing.T) {
	p := newTestParser()
	mustParse(t, p, fullLabel)
	if name, ok := p.Substances().Lookup("R16CO5Y76E"); !ok || name != "ASPIRIN" {
		t.Errorf("Lookup(R16CO5Y76E) = %q, %v", name, ok)
	}
	if name, ok := p.Substances().Lookup("ETJ7Z6XBU4"); !ok || name != "SILICON DIOXIDE" {
		t.Errorf("Lookup(ETJ7Z6XBU4) = %q, %v", name, ok)
	}
}

func TestSkipValidation(t *testing.T) {
	res := mustParse(t, newTestParser(WithOptions(Options{SkipValidation: true})), labelWith())
	if res.Validation != nil {
		t.Errorf("Validation = %+v, want nil", res.Validation)
	}
	if !res.IsValid() {
		t.Error("a result without validation and errors is valid")
	}

	res = mustParse(t, newTestParser(WithValidator(nil)), labelWith())
	if res.Validation != nil {
		t.Error("nil validator should skip validation")
	}
}

func TestSectionTypeOverrides(t *testing.T) {
	opts := Options{SectionTypeOverrides: map[string]entities.SectionType{"34084-4": entities.SectionWarnings}}
	res := mustParse(t, newTestParser(WithOptions(opts)), labelWith(section(warningsUUID, "34084-4", "")))
	if got := res.Document.Sections[0].SectionType; got != entities.SectionWarnings {
		t.Errorf("SectionType = %q, want WARNINGS", got)
	}
}

func TestConcurrentParses(t *testing.T) {
	p := newTestParser()
	want := mustParse(t, p, fullLabel).Document

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.ParseString(fullLabel)
			if err != nil {
				errs <- err.Error()
				return
			}
			if !reflect.DeepEqual(res.Document, want) {
				errs <- "document differs between concurrent parses"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestParseReaderAndDocument(t *testing.T) {
	p := newTestParser()
	res, err := p.ParseReader(strings.NewReader(fullLabel))
	if err != nil || res.Document.DocumentID != docUUID {
		t.Errorf("ParseReader() = %v, %v", res, err)
	}
	doc, err := p.ParseDocument([]byte(fullLabel))
	if err != nil || doc.DocumentID != docUUID {
		t.Errorf("ParseDocument() = %v, %v", doc, err)
	}
	if _, err := p.ParseElement(nil); !errors.Is(err, ErrMalformedXML) {
		t.Errorf("ParseElement(nil) error = %v", err)
	}
}
