package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", FileName(42))
	in := SnapshotV1{
		Header:         Header{Version: Version, PlanetID: "P1", Seq: 42},
		Started:        true,
		HasExplorer:    true,
		ExplorerID:     "E7",
		WarningPending: true,
		CellCharged:    true,
		BasicResources: []string{"CARBON"},
		Combinations:   []string{"WATER", "AI_PARTNER"},
		Digest:         "abc",
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.Header != in.Header || out.ExplorerID != "E7" || !out.WarningPending || !out.CellCharged || out.HasRocket {
		t.Fatalf("roundtrip mismatch: %+v", out)
	}
	if len(out.Combinations) != 2 || out.Digest != "abc" {
		t.Fatalf("operational params lost: %+v", out)
	}
}

func TestReadSnapshot_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(1))
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
