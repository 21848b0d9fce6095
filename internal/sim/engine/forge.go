// Package engine turns stored energy into resources.
//
// The Forge is deterministic: generation succeeds exactly when the cell is
// charged, and combination succeeds exactly when the inputs match the recipe
// and the cell is charged. Nothing is consumed on failure.
package engine

import (
	"fmt"

	"github.com/google/uuid"

	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/resource"
)

var ErrCellNotCharged = planetstate.ErrCellNotCharged

// ReasonCellNotCharged is the refusal text sent back with returned inputs.
const ReasonCellNotCharged = "energy cell not charged"

// CombineError is a refused combination. A and B are the caller's inputs,
// returned untouched.
type CombineError struct {
	Reason string
	A      resource.Generic
	B      resource.Generic
}

func (e *CombineError) Error() string { return e.Reason }

type Forge struct {
	newID func() string
}

func NewForge() *Forge {
	return &Forge{newID: uuid.NewString}
}

// NewForgeWithIDs uses ids for every minted resource. Used by replays and tests.
func NewForgeWithIDs(ids func() string) *Forge {
	if ids == nil {
		return NewForge()
	}
	return &Forge{newID: ids}
}

func (f *Forge) Generate(t resource.BasicType, cell *planetstate.EnergyCell) (resource.Basic, error) {
	if !resource.Kind(t).IsBasic() {
		return resource.Basic{}, fmt.Errorf("generate: unknown basic resource %q", t)
	}
	if err := cell.Discharge(); err != nil {
		return resource.Basic{}, fmt.Errorf("generate %s: %w", t, err)
	}
	return resource.Basic{ID: f.newID(), Type: t}, nil
}

// Combine runs r over a and b. On refusal the error is a *CombineError carrying
// both inputs.
func (f *Forge) Combine(r resource.Recipe, a, b resource.Generic, cell *planetstate.EnergyCell) (resource.Complex, error) {
	if err := r.Check(a, b); err != nil {
		return resource.Complex{}, &CombineError{Reason: err.Error(), A: a, B: b}
	}
	if err := cell.Discharge(); err != nil {
		return resource.Complex{}, &CombineError{Reason: ReasonCellNotCharged, A: a, B: b}
	}
	return resource.Complex{ID: f.newID(), Type: r.Output}, nil
}
