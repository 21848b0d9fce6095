package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"airfryer.ai/internal/persistence/indexdb"
)

const dbUsage = "usage: admin db [-data ./data] [-planet ID|-db PATH] [-limit N] [-kind KIND] messages|asteroids|snapshots|meta"

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	planetID := fs.String("planet", "", "planet id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	kind := fs.String("kind", "", "message kind filter (messages)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*planetID) == "" {
			fmt.Fprintln(os.Stderr, "missing -planet or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "planets", *planetID, "index", "planet.sqlite")
	}

	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runQuery(ctx, r, os.Stdout, q, strings.ToUpper(strings.TrimSpace(*kind)), *limit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if strings.HasPrefix(err.Error(), "unknown query") {
			fmt.Fprintln(os.Stderr, dbUsage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// runQuery prints one JSON object per row.
func runQuery(ctx context.Context, r *indexdb.Reader, w io.Writer, q, kind string, limit int) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	switch q {
	case "messages":
		rows, err := r.Messages(ctx, kind, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, row := range rows {
			_ = enc.Encode(row)
		}
	case "asteroids":
		rows, err := r.Asteroids(ctx, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, row := range rows {
			_ = enc.Encode(row)
		}
	case "snapshots":
		rows, err := r.Snapshots(ctx, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, row := range rows {
			_ = enc.Encode(row)
		}
	case "meta":
		meta, err := r.Meta(ctx)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		_ = enc.Encode(meta)
	default:
		return fmt.Errorf("unknown query: %s", q)
	}
	return nil
}
