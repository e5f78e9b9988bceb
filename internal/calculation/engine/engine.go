package engine

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxrail/internal/calculation/domain"
)

// Engine derives the taxable base for a request. The general engine uses
// price times quantity; specialized engines derive the base from usage
// attributes instead.
type Engine interface {
	Name() string
	TaxableBase(req domain.Request) decimal.Decimal
}

// Registry holds the engines by name and falls back to the general engine
// for names it does not know.
type Registry struct {
	engines  map[string]Engine
	fallback Engine
}

func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
		if r.fallback == nil {
			r.fallback = e
		}
	}
	return r
}

func (r *Registry) For(name string) Engine {
	if e, ok := r.engines[name]; ok {
		return e
	}
	return r.fallback
}
