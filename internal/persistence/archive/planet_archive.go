package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"airfryer.ai/internal/persistence/snapshot"
)

type DestroyedMeta struct {
	PlanetID  string `json:"planet_id"`
	Seq       uint64 `json:"seq"`
	Snapshot  string `json:"snapshot"`
	Digest    string `json:"digest"`
	CreatedAt string `json:"created_at"`
}

func destroyedDir(planetDir string) string {
	return filepath.Join(planetDir, "archives", "destroyed")
}

// ArchiveDestroyed copies the final snapshot of a killed planet into
// planetDir/archives/destroyed/ and writes meta.json next to it. Once it
// exists the planet id must not be resumed.
func ArchiveDestroyed(planetDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, err error) {
	dir := destroyedDir(planetDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}
	meta := DestroyedMeta{
		PlanetID:  snap.Header.PlanetID,
		Seq:       snap.Header.Seq,
		Snapshot:  filepath.Base(dst),
		Digest:    snap.Digest,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// Destroyed reports the archive written by ArchiveDestroyed, if any.
func Destroyed(planetDir string) (DestroyedMeta, bool, error) {
	var meta DestroyedMeta
	b, err := os.ReadFile(filepath.Join(destroyedDir(planetDir), "meta.json"))
	if errors.Is(err, os.ErrNotExist) {
		return meta, false, nil
	}
	if err != nil {
		return meta, false, err
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return meta, false, fmt.Errorf("destroyed meta: %w", err)
	}
	return meta, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
