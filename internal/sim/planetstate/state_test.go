package planetstate

import (
	"errors"
	"testing"
)

func TestBuildRocket_ConsumesCharge(t *testing.T) {
	s := New("P1")
	if err := s.BuildRocket(); !errors.Is(err, ErrCellNotCharged) {
		t.Fatalf("build on empty cell: got %v want ErrCellNotCharged", err)
	}
	if !s.ChargeCell(Sunray{ID: "s1"}) {
		t.Fatalf("first charge should be stored")
	}
	if s.ChargeCell(Sunray{ID: "s2"}) {
		t.Fatalf("second charge on a full cell should be wasted")
	}
	if err := s.BuildRocket(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if s.Cell().IsCharged() {
		t.Fatalf("cell should be empty after building a rocket")
	}
	s.ChargeCell(Sunray{ID: "s3"})
	if err := s.BuildRocket(); !errors.Is(err, ErrRocketPresent) {
		t.Fatalf("second build: got %v want ErrRocketPresent", err)
	}
	if !s.Cell().IsCharged() {
		t.Fatalf("failed build must not spend the charge")
	}
}

func TestTakeRocket(t *testing.T) {
	s := New("P1")
	s.SetIDSource(func() string { return "R1" })
	if _, ok := s.TakeRocket(); ok {
		t.Fatalf("empty slot returned a rocket")
	}
	s.ChargeCell(Sunray{})
	_ = s.BuildRocket()
	r, ok := s.TakeRocket()
	if !ok || r.ID != "R1" {
		t.Fatalf("take: %+v %v", r, ok)
	}
	if s.HasRocket() {
		t.Fatalf("slot should be empty after take")
	}
}

func TestSnapshotAndRestore(t *testing.T) {
	s := New("P9")
	s.Restore(true, true)
	snap := s.Snapshot()
	if snap.PlanetID != "P9" || snap.ChargedCells != 1 || !snap.HasRocket || len(snap.EnergyCells) != 1 {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}
	s.Restore(false, false)
	snap = s.Snapshot()
	if snap.ChargedCells != 0 || snap.HasRocket || snap.EnergyCells[0] {
		t.Fatalf("restore did not clear state: %+v", snap)
	}
}
