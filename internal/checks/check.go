// internal/checks/check.go
package checks

import (
	"context"

	"snowrail/internal/models"
)

// Check is the interface every trust check must implement. Implementations
// must respect the ctx deadline and must not share mutable state, so a
// failing or slow check can never corrupt a sibling's result.
type Check interface {
	// Type returns the check's unique identifier, e.g. "tls".
	Type() string

	// Category returns the trust dimension this check scores.
	Category() models.CheckCategory

	// Evaluate scores one dimension of the destination's trustworthiness.
	Evaluate(ctx context.Context, req *models.ValidationRequest) (*models.CheckResult, error)
}

// Registry holds the ordered set of registered checks together with their
// aggregation weights.
type Registry struct {
	checks  []Check
	weights map[string]float64
}

func NewRegistry() *Registry {
	return &Registry{
		weights: make(map[string]float64),
	}
}

// Register appends a check with the given aggregation weight.
// Registration order is the execution order in sequential mode.
func (r *Registry) Register(c Check, weight float64) {
	r.checks = append(r.checks, c)
	r.weights[c.Type()] = weight
}

// Weight returns the aggregation weight for a check type, defaulting to 1.
func (r *Registry) Weight(checkType string) float64 {
	if w, ok := r.weights[checkType]; ok {
		return w
	}
	return 1.0
}

// Enabled returns the checks selected by the request options, preserving
// registration order. Nil options or an empty enabled list selects all
// registered checks minus any disabled ones.
func (r *Registry) Enabled(opts *models.ValidationOptions) []Check {
	if opts == nil {
		return r.checks
	}

	enabled := make(map[string]bool, len(opts.EnabledChecks))
	for _, t := range opts.EnabledChecks {
		enabled[t] = true
	}
	disabled := make(map[string]bool, len(opts.DisabledChecks))
	for _, t := range opts.DisabledChecks {
		disabled[t] = true
	}

	var selected []Check
	for _, c := range r.checks {
		if disabled[c.Type()] {
			continue
		}
		if len(enabled) > 0 && !enabled[c.Type()] {
			continue
		}
		selected = append(selected, c)
	}

	return selected
}

// Types returns the type tags of all registered checks in order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.checks))
	for _, c := range r.checks {
		types = append(types, c.Type())
	}
	return types
}
