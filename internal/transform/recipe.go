package transform

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// Recipe is an ordered list of steps that can be replayed on a fresh table.
type Recipe struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// ParseRecipe decodes a YAML (or JSON) recipe and checks every step kind.
func ParseRecipe(data []byte) (Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Recipe{}, fmt.Errorf("parsing recipe: %w", err)
	}
	for i, s := range r.Steps {
		if !s.Kind.Valid() {
			return Recipe{}, fmt.Errorf("recipe step %d: unsupported operation '%s'", i+1, s.Kind)
		}
	}
	return r, nil
}

// YAML renders the recipe.
func (r Recipe) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// Replay applies the steps in order. It stops at the first failed step
// unless keepGoing is set; failed steps leave the table unchanged.
func (e *Engine) Replay(t *table.Table, r Recipe, keepGoing bool) (*table.Table, []Outcome) {
	outcomes := make([]Outcome, 0, len(r.Steps))
	current := t
	for _, s := range r.Steps {
		out := e.Apply(current, s)
		outcomes = append(outcomes, out)
		if !out.Succeeded && !keepGoing {
			break
		}
		current = out.Table
	}
	return current, outcomes
}
