package main

import (
	"fmt"
	"os"
	"path/filepath"

	"airfryer.ai/internal/persistence/indexdb"
)

// openIndex returns nil when the backend is disabled.
func openIndex(planetDir, backend string) (*indexdb.SQLiteIndex, error) {
	switch backend {
	case "none", "":
		return nil, nil
	case "sqlite":
		dir := filepath.Join(planetDir, "index")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		idx, err := indexdb.OpenSQLite(filepath.Join(dir, "planet.sqlite"))
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported index backend %q", backend)
	}
}
