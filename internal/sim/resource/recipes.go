package resource

import "fmt"

// Recipe describes one combination: two input kinds in slot order plus the
// complex type they produce.
type Recipe struct {
	Output ComplexType `json:"output"`
	Inputs [2]Kind     `json:"inputs"`
}

// CombineRequest is an explorer's ask to run the recipe for Target over A and B.
type CombineRequest struct {
	Target ComplexType `json:"target"`
	A      Generic     `json:"a"`
	B      Generic     `json:"b"`
}

var recipes = map[ComplexType]Recipe{
	Water:     {Output: Water, Inputs: [2]Kind{Hydrogen.Kind(), Oxygen.Kind()}},
	Diamond:   {Output: Diamond, Inputs: [2]Kind{Carbon.Kind(), Carbon.Kind()}},
	Life:      {Output: Life, Inputs: [2]Kind{Water.Kind(), Carbon.Kind()}},
	Robot:     {Output: Robot, Inputs: [2]Kind{Silicon.Kind(), Life.Kind()}},
	Dolphin:   {Output: Dolphin, Inputs: [2]Kind{Water.Kind(), Life.Kind()}},
	AIPartner: {Output: AIPartner, Inputs: [2]Kind{Robot.Kind(), Diamond.Kind()}},
}

func RecipeFor(t ComplexType) (Recipe, bool) {
	r, ok := recipes[t]
	return r, ok
}

// Recipes returns every recipe in DAG order.
func Recipes() []Recipe {
	out := make([]Recipe, 0, len(allComplex))
	for _, t := range allComplex {
		out = append(out, recipes[t])
	}
	return out
}

// Check returns nil when a and b fill the recipe's slots in order.
func (r Recipe) Check(a, b Generic) error {
	if !a.Valid() || !b.Valid() {
		return fmt.Errorf("%s: malformed input resource", r.Output)
	}
	if a.Kind() != r.Inputs[0] || b.Kind() != r.Inputs[1] {
		return fmt.Errorf("%s needs %s + %s, got %s + %s", r.Output, r.Inputs[0], r.Inputs[1], a.Kind(), b.Kind())
	}
	return nil
}
