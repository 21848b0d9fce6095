package planet

import (
	"errors"
	"fmt"
	"strings"

	"airfryer.ai/internal/sim/resource"
)

var (
	ErrNoPlanetID       = errors.New("planet id must not be empty")
	ErrNoBasicResources = errors.New("planet must generate at least one basic resource")
	ErrNoWarningMarker  = fmt.Errorf("combination set must include %s", WarningMarker)
)

// WarningMarker is the entry dropped from the combination answer while a
// warning is pending.
const WarningMarker = resource.AIPartner

type Config struct {
	PlanetID     string
	Basic        []resource.BasicType
	Combinations []resource.ComplexType

	// RequireRegisteredExplorer drops explorer requests unless the sender is
	// the explorer the orchestrator docked.
	RequireRegisteredExplorer bool

	// SurplusSunrayBuildsRocket lets a sunray that meets a full cell turn the
	// stored charge into a rocket and recharge. When false, rockets are only
	// built on demand by an asteroid.
	SurplusSunrayBuildsRocket bool
}

// DefaultConfig is the minimal carbon planet with every recipe. Surplus
// sunrays build rockets; set SurplusSunrayBuildsRocket to false for a planet
// that never builds a rocket before an asteroid asks for one.
func DefaultConfig(planetID string) Config {
	return Config{
		PlanetID:     planetID,
		Basic:        []resource.BasicType{resource.Carbon},
		Combinations: resource.AllComplex(),

		SurplusSunrayBuildsRocket: true,
	}
}

// Validate accepts any subset of recipes that includes WarningMarker. The
// covert bit is the marker's absence, so a planet offering n recipes answers
// n-1 while a warning is pending.
func (c Config) Validate() error {
	if strings.TrimSpace(c.PlanetID) == "" {
		return ErrNoPlanetID
	}
	if len(c.Basic) == 0 {
		return ErrNoBasicResources
	}
	seenB := map[resource.BasicType]bool{}
	for _, b := range c.Basic {
		if !resource.Kind(b).IsBasic() {
			return fmt.Errorf("unknown basic resource %q", b)
		}
		if seenB[b] {
			return fmt.Errorf("duplicate basic resource %q", b)
		}
		seenB[b] = true
	}
	seenC := map[resource.ComplexType]bool{}
	for _, t := range c.Combinations {
		if _, ok := resource.RecipeFor(t); !ok {
			return fmt.Errorf("unknown complex resource %q", t)
		}
		if seenC[t] {
			return fmt.Errorf("duplicate complex resource %q", t)
		}
		seenC[t] = true
	}
	if !seenC[WarningMarker] {
		return ErrNoWarningMarker
	}
	return nil
}
