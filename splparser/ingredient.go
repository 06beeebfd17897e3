package splparser

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// Ingredient class codes. ACTIB and ACTIR are basis-of-strength variants of an active ingredient.
var ingredientKinds = map[string]entities.IngredientKind{
	"ACTIM": entities.IngredientActive,
	"ACTIB": entities.IngredientActive,
	"ACTIR": entities.IngredientActive,
	"IACT":  entities.IngredientInactive,
}

func ingredientKind(classCode string) (entities.IngredientKind, bool) {
	k, ok := ingredientKinds[strings.ToUpper(strings.TrimSpace(classCode))]
	return k, ok
}

func (r *run) extractIngredients(product *etree.Element) []entities.Ingredient {
	elements := FindAll(product, "ingredient")
	out := make([]entities.Ingredient, 0, len(elements))
	for i, el := range elements {
		ing, ok := r.extractIngredient(el, i+1)
		if ok {
			out = append(out, ing)
		}
	}
	return out
}

func (r *run) extractIngredient(el *etree.Element, pos int) (entities.Ingredient, bool) {
	classCode := Attr(el, "classCode")
	kind, ok := ingredientKind(classCode)
	if !ok {
		r.errs.add("ingredient %d: unknown classCode %q, skipped", pos, classCode)
		return entities.Ingredient{}, false
	}

	ing := entities.Ingredient{Kind: kind}
	if q := Find(el, "quantity"); q != nil {
		qty, err := BuildQuantity(q)
		if err != nil {
			r.errs.add("ingredient %d: %v", pos, err)
		}
		ing.Quantity = qty
	}

	substance := Find(el, "ingredientSubstance")
	ing.SubstanceCode = BuildCodedConcept(Find(substance, "code"))
	ing.SubstanceName = Text(Find(substance, "name"))

	if kind == entities.IngredientActive {
		if moiety := FindPath(substance, "activeMoiety/activeMoiety"); moiety != nil {
			code := BuildCodedConcept(Find(moiety, "code"))
			name := Text(Find(moiety, "name"))
			if code != nil || name != "" {
				ing.ActiveMoiety = &entities.Ingredient{
					Kind:          entities.IngredientActive,
					SubstanceCode: code,
					SubstanceName: name,
				}
				r.remember(code, name)
			}
		}
	}

	if ing.SubstanceCode == nil && ing.SubstanceName == "" {
		r.errs.add("ingredient %d (%s): no substance code or name, discarded", pos, classCode)
		return entities.Ingredient{}, false
	}
	r.remember(ing.SubstanceCode, ing.SubstanceName)
	return ing, true
}

func (r *run) remember(code *entities.CodedConcept, name string) {
	if code == nil || name == "" || r.p.cache == nil {
		return
	}
	r.p.cache.Remember(code.Code, name)
}
