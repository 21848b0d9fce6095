package planetstate

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrCellNotCharged = errors.New("energy cell not charged")
	ErrRocketPresent  = errors.New("rocket slot already occupied")
)

// Sunray is one energy pulse delivered by the orchestrator.
type Sunray struct {
	ID string `json:"id"`
}

// Asteroid is one incoming hazard.
type Asteroid struct {
	ID string `json:"id"`
}

// Rocket is a one-shot countermeasure built from a charged cell.
type Rocket struct {
	ID string `json:"id"`
}

type EnergyCell struct {
	charged bool
}

func (c *EnergyCell) IsCharged() bool { return c != nil && c.charged }

// Charge stores the pulse. It reports false when the cell was already full and
// the pulse was wasted.
func (c *EnergyCell) Charge(Sunray) bool {
	if c.charged {
		return false
	}
	c.charged = true
	return true
}

// Discharge spends the stored charge.
func (c *EnergyCell) Discharge() error {
	if !c.charged {
		return ErrCellNotCharged
	}
	c.charged = false
	return nil
}

// Snapshot is the reporting view returned to the orchestrator.
type Snapshot struct {
	PlanetID     string `json:"planet_id"`
	EnergyCells  []bool `json:"energy_cells"`
	ChargedCells int    `json:"charged_cells"`
	HasRocket    bool   `json:"has_rocket"`
}

// State owns the planet's single energy cell and rocket slot.
// Not safe for concurrent use; the planet loop is the only writer.
type State struct {
	id     string
	cell   EnergyCell
	rocket *Rocket

	newID func() string
}

func New(planetID string) *State {
	return &State{id: planetID, newID: uuid.NewString}
}

// SetIDSource replaces the rocket id generator (tests and replays).
func (s *State) SetIDSource(f func() string) {
	if f != nil {
		s.newID = f
	}
}

func (s *State) ID() string { return s.id }

func (s *State) Cell() *EnergyCell { return &s.cell }

func (s *State) ChargeCell(sr Sunray) bool { return s.cell.Charge(sr) }

func (s *State) HasRocket() bool { return s.rocket != nil }

// BuildRocket consumes the cell charge and fills the rocket slot.
func (s *State) BuildRocket() error {
	if s.rocket != nil {
		return ErrRocketPresent
	}
	if err := s.cell.Discharge(); err != nil {
		return err
	}
	s.rocket = &Rocket{ID: s.newID()}
	return nil
}

// TakeRocket empties the rocket slot.
func (s *State) TakeRocket() (*Rocket, bool) {
	r := s.rocket
	s.rocket = nil
	return r, r != nil
}

func (s *State) Snapshot() Snapshot {
	charged := 0
	if s.cell.charged {
		charged = 1
	}
	return Snapshot{
		PlanetID:     s.id,
		EnergyCells:  []bool{s.cell.charged},
		ChargedCells: charged,
		HasRocket:    s.rocket != nil,
	}
}

// Restore overwrites the physical state from a persisted snapshot.
func (s *State) Restore(cellCharged, hasRocket bool) {
	s.cell.charged = cellCharged
	s.rocket = nil
	if hasRocket {
		s.rocket = &Rocket{ID: s.newID()}
	}
}
