package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version  int    `json:"version"`
	PlanetID string `json:"planet_id"`
	Seq      uint64 `json:"seq"`
}

// SnapshotV1 captures everything needed to resume a planet: the decision
// core's session flags plus the physical cell/rocket state.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Started           bool   `json:"started"`
	HasExplorer       bool   `json:"has_explorer"`
	ExplorerID        string `json:"explorer_id,omitempty"`
	WarningPending    bool   `json:"warning_pending"`
	StoppedNoticeSent bool   `json:"stopped_notice_sent,omitempty"`
	Killed            bool   `json:"killed,omitempty"`

	CellCharged bool `json:"cell_charged"`
	HasRocket   bool `json:"has_rocket"`

	// Operational parameters (captured for replay).
	BasicResources            []string `json:"basic_resources"`
	Combinations              []string `json:"combinations"`
	RequireRegisteredExplorer bool     `json:"require_registered_explorer,omitempty"`
	SurplusSunrayBuildsRocket bool     `json:"surplus_sunray_builds_rocket,omitempty"`

	Digest string `json:"digest"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Header line is for humans and tooling; gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// FileName is the canonical name of the snapshot taken after message seq.
func FileName(seq uint64) string {
	return fmt.Sprintf("%d.snap.zst", seq)
}
