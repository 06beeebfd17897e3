package entities

// CodedConcept references an entry of an external terminology (LOINC, NCI thesaurus, UNII, NDC...).
type CodedConcept struct {
	Code           string `json:"code"`
	CodeSystem     string `json:"code_system"`
	DisplayName    string `json:"display_name,omitempty"`
	CodeSystemName string `json:"code_system_name,omitempty"`
}

// Equal reports whether both concepts carry the same code in the same code system.
// Display names are ignored.
func (c *CodedConcept) Equal(other *CodedConcept) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Code == other.Code && c.CodeSystem == other.CodeSystem
}

// Quantity is a numerator/denominator pair such as "325 mg / 1 tablet".
type Quantity struct {
	NumeratorValue   float64 `json:"numerator_value"`
	NumeratorUnit    string  `json:"numerator_unit"`
	DenominatorValue float64 `json:"denominator_value"`
	DenominatorUnit  string  `json:"denominator_unit"`
}

type Organization struct {
	IDRoot      string `json:"id_root,omitempty"`
	IDExtension string `json:"id_extension,omitempty"`
	Name        string `json:"name,omitempty"`
}

// DocumentAuthor lists the authoring organizations from the outermost
// representedOrganization down through nested assignedOrganization entries.
type DocumentAuthor struct {
	Organizations []Organization `json:"organizations"`
	Time          string         `json:"time,omitempty"`
}

// Labeler returns the outermost organization, or nil when none was found.
func (a *DocumentAuthor) Labeler() *Organization {
	if a == nil || len(a.Organizations) == 0 {
		return nil
	}
	return &a.Organizations[0]
}
