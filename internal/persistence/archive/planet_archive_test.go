package archive

import (
	"os"
	"path/filepath"
	"testing"

	"airfryer.ai/internal/persistence/snapshot"
)

func TestArchiveDestroyed_CopiesSnapshotAndMarksPlanet(t *testing.T) {
	planetDir := filepath.Join(t.TempDir(), "planets", "P1")
	src := filepath.Join(planetDir, "snapshots", "9.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	if _, ok, err := Destroyed(planetDir); err != nil || ok {
		t.Fatalf("Destroyed before archive = %v, %v", ok, err)
	}

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, PlanetID: "P1", Seq: 9},
		Digest: "abc",
	}
	dst, err := ArchiveDestroyed(planetDir, src, snap)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if filepath.Base(dst) != "9.snap.zst" {
		t.Fatalf("archived path = %s", dst)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch")
	}

	meta, ok, err := Destroyed(planetDir)
	if err != nil || !ok {
		t.Fatalf("Destroyed = %v, %v", ok, err)
	}
	if meta.PlanetID != "P1" || meta.Seq != 9 || meta.Digest != "abc" || meta.Snapshot != "9.snap.zst" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestDestroyed_BadMeta(t *testing.T) {
	planetDir := t.TempDir()
	dir := filepath.Join(planetDir, "archives", "destroyed")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Destroyed(planetDir); err == nil {
		t.Fatalf("expected error")
	}
}
