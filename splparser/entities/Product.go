package entities

import "github.com/samber/lo"

// PackageInfo describes one asContent packaging level.
type PackageInfo struct {
	Quantity    *Quantity     `json:"quantity,omitempty"`
	PackageCode *CodedConcept `json:"package_code,omitempty"`
	FormCode    *CodedConcept `json:"form_code,omitempty"`
}

type MarketingInfo struct {
	Code      *CodedConcept `json:"code,omitempty"`
	Status    string        `json:"status,omitempty"`
	StartDate string        `json:"start_date,omitempty"`
	EndDate   string        `json:"end_date,omitempty"`
}

type ApprovalInfo struct {
	ApprovalID string        `json:"approval_id,omitempty"`
	Code       *CodedConcept `json:"code,omitempty"`
	Territory  string        `json:"territory,omitempty"`
}

type RouteOfAdministration struct {
	RouteCode *CodedConcept `json:"route_code"`
}

type ManufacturedProduct struct {
	ProductCode   *CodedConcept           `json:"product_code,omitempty"`
	ProductName   string                  `json:"product_name,omitempty"`
	NameSuffix    string                  `json:"name_suffix,omitempty"`
	FormCode      *CodedConcept           `json:"form_code,omitempty"`
	GenericName   string                  `json:"generic_name,omitempty"`
	Ingredients   []Ingredient            `json:"ingredients"`
	Packaging     []PackageInfo           `json:"packaging"`
	MarketingInfo *MarketingInfo          `json:"marketing_info,omitempty"`
	ApprovalInfo  *ApprovalInfo           `json:"approval_info,omitempty"`
	Routes        []RouteOfAdministration `json:"routes"`
}

func (p *ManufacturedProduct) ActiveIngredients() []Ingredient {
	return lo.Filter(p.Ingredients, func(i Ingredient, _ int) bool { return i.IsActive() })
}

func (p *ManufacturedProduct) InactiveIngredients() []Ingredient {
	return lo.Filter(p.Ingredients, func(i Ingredient, _ int) bool { return !i.IsActive() })
}

// FullName joins the product name and its suffix ("Tylenol" + "Extra Strength").
func (p *ManufacturedProduct) FullName() string {
	if p.NameSuffix == "" {
		return p.ProductName
	}
	if p.ProductName == "" {
		return p.NameSuffix
	}
	return p.ProductName + " " + p.NameSuffix
}

// IngredientSummary aggregates the ingredient list of a single product.
type IngredientSummary struct {
	TotalIngredients    int      `json:"total_ingredients"`
	ActiveCount         int      `json:"active_count"`
	InactiveCount       int      `json:"inactive_count"`
	WithQuantities      int      `json:"with_quantities"`
	WithActiveMoiety    int      `json:"with_active_moiety"`
	UniqueSubstances    []string `json:"unique_substances"`
	UnitsUsed           []string `json:"units_used"`
	ActiveSubstanceList []string `json:"active_substances"`
}

func (p *ManufacturedProduct) IngredientSummary() IngredientSummary {
	s := IngredientSummary{TotalIngredients: len(p.Ingredients)}
	var names, units, actives []string
	for _, ing := range p.Ingredients {
		if ing.IsActive() {
			s.ActiveCount++
			actives = append(actives, ing.DisplayName())
		} else {
			s.InactiveCount++
		}
		if ing.Quantity != nil {
			s.WithQuantities++
			if ing.Quantity.NumeratorUnit != "" {
				units = append(units, ing.Quantity.NumeratorUnit)
			}
		}
		if ing.ActiveMoiety != nil {
			s.WithActiveMoiety++
		}
		if n := ing.DisplayName(); n != "" {
			names = append(names, n)
		}
	}
	s.UniqueSubstances = lo.Uniq(names)
	s.UnitsUsed = lo.Uniq(units)
	s.ActiveSubstanceList = actives
	return s
}
