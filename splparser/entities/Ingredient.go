package entities

type IngredientKind string

const (
	IngredientActive   IngredientKind = "active"
	IngredientInactive IngredientKind = "inactive"
)

// Ingredient is one active or inactive ingredient of a product. ActiveMoiety is
// only populated for active ingredients and never carries a quantity.
type Ingredient struct {
	Kind          IngredientKind `json:"kind"`
	SubstanceCode *CodedConcept  `json:"substance_code,omitempty"`
	SubstanceName string         `json:"substance_name,omitempty"`
	Quantity      *Quantity      `json:"quantity,omitempty"`
	ActiveMoiety  *Ingredient    `json:"active_moiety,omitempty"`
}

func (i *Ingredient) IsActive() bool {
	return i.Kind == IngredientActive
}

// DisplayName prefers the substance name and falls back to the code display name, then the code.
func (i *Ingredient) DisplayName() string {
	if i.SubstanceName != "" {
		return i.SubstanceName
	}
	if i.SubstanceCode != nil {
		if i.SubstanceCode.DisplayName != "" {
			return i.SubstanceCode.DisplayName
		}
		return i.SubstanceCode.Code
	}
	return ""
}
