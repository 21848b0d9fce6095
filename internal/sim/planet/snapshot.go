package planet

import (
	"fmt"

	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/resource"
)

func (a *AI) ExportSnapshot(seq uint64) snapshot.SnapshotV1 {
	basic := make([]string, 0, len(a.cfg.Basic))
	for _, b := range a.cfg.Basic {
		basic = append(basic, string(b))
	}
	combos := make([]string, 0, len(a.cfg.Combinations))
	for _, c := range a.cfg.Combinations {
		combos = append(combos, string(c))
	}
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:  snapshot.Version,
			PlanetID: a.cfg.PlanetID,
			Seq:      seq,
		},
		Started:           a.started,
		HasExplorer:       a.hasExplorer,
		ExplorerID:        a.explorerID,
		WarningPending:    a.warning.Pending(),
		StoppedNoticeSent: a.stoppedNoticeSent,
		Killed:            a.killed,

		CellCharged: a.state.Cell().IsCharged(),
		HasRocket:   a.state.HasRocket(),

		BasicResources:            basic,
		Combinations:              combos,
		RequireRegisteredExplorer: a.cfg.RequireRegisteredExplorer,
		SurplusSunrayBuildsRocket: a.cfg.SurplusSunrayBuildsRocket,

		Digest: a.Digest(),
	}
}

// ConfigFromSnapshot rebuilds the configuration a snapshot was taken with.
func ConfigFromSnapshot(snap snapshot.SnapshotV1) (Config, error) {
	cfg := Config{
		PlanetID:                  snap.Header.PlanetID,
		RequireRegisteredExplorer: snap.RequireRegisteredExplorer,
		SurplusSunrayBuildsRocket: snap.SurplusSunrayBuildsRocket,
	}
	for _, s := range snap.BasicResources {
		b, ok := resource.ParseBasic(s)
		if !ok {
			return Config{}, fmt.Errorf("snapshot: unknown basic resource %q", s)
		}
		cfg.Basic = append(cfg.Basic, b)
	}
	for _, s := range snap.Combinations {
		c, ok := resource.ParseComplex(s)
		if !ok {
			return Config{}, fmt.Errorf("snapshot: unknown complex resource %q", s)
		}
		cfg.Combinations = append(cfg.Combinations, c)
	}
	return cfg, cfg.Validate()
}

// Restore builds an AI from cfg and overwrites its session and physical state
// with snap. The resulting digest must equal the recorded one.
func Restore(cfg Config, snap snapshot.SnapshotV1, eng Engine) (*AI, error) {
	if snap.Header.PlanetID != cfg.PlanetID {
		return nil, fmt.Errorf("snapshot planet %q does not match %q", snap.Header.PlanetID, cfg.PlanetID)
	}
	st := planetstate.New(cfg.PlanetID)
	st.Restore(snap.CellCharged, snap.HasRocket)
	a, err := New(cfg, st, eng)
	if err != nil {
		return nil, err
	}
	a.started = snap.Started
	a.hasExplorer = snap.HasExplorer
	a.explorerID = snap.ExplorerID
	a.stoppedNoticeSent = snap.StoppedNoticeSent
	a.killed = snap.Killed
	if snap.WarningPending {
		a.warning.Raise()
	}
	if snap.Digest != "" && snap.Digest != a.Digest() {
		return nil, fmt.Errorf("snapshot digest mismatch: recorded %s, restored %s", snap.Digest, a.Digest())
	}
	return a, nil
}
