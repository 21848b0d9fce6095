package main

import (
	"flag"
	"fmt"
	"os"

	persistlog "airfryer.ai/internal/persistence/log"
	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/sim/engine"
	"airfryer.ai/internal/sim/planet"
	"airfryer.ai/internal/sim/planetstate"
	"airfryer.ai/internal/sim/tuning"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst (optional; without it replay starts from a fresh planet)")
		planetDir  = flag.String("dir", "", "planet data dir containing events/events-*.jsonl.zst (optional)")
		configPath = flag.String("config", "", "planet.yaml for a fresh start (ignored with -snapshot)")
		toSeq      = flag.Uint64("to_seq", 0, "stop at seq (inclusive, optional)")
	)
	flag.Parse()

	if *snapPath == "" && *planetDir == "" {
		fmt.Fprintln(os.Stderr, "need -snapshot and/or -dir")
		os.Exit(2)
	}

	ai, startSeq, err := initialAI(*snapPath, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	snap := ai.ExportSnapshot(startSeq)
	fmt.Printf("start planet=%s seq=%d started=%v explorer=%q warning=%v charged=%v rocket=%v digest=%s\n",
		snap.Header.PlanetID, startSeq, snap.Started, snap.ExplorerID, snap.WarningPending, snap.CellCharged, snap.HasRocket, snap.Digest)

	if *planetDir == "" {
		return
	}
	files, err := persistlog.JournalFiles(*planetDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *planetDir)
		os.Exit(1)
	}

	res, err := replay(ai, startSeq, *toSeq, files)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d entries last_seq=%d asteroids=%d undefended=%d truncated_segments=%d\n",
		res.Checked, res.LastSeq, res.Asteroids, res.Undefended, res.Truncated)
}

func initialAI(snapPath, configPath string) (*planet.AI, uint64, error) {
	if snapPath != "" {
		snap, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return nil, 0, fmt.Errorf("read snapshot: %w", err)
		}
		cfg, err := planet.ConfigFromSnapshot(snap)
		if err != nil {
			return nil, 0, fmt.Errorf("snapshot config: %w", err)
		}
		ai, err := planet.Restore(cfg, snap, engine.NewForge())
		if err != nil {
			return nil, 0, fmt.Errorf("restore: %w", err)
		}
		return ai, snap.Header.Seq, nil
	}
	tune, err := tuning.Load(configPath)
	if err != nil {
		return nil, 0, fmt.Errorf("load tuning: %w", err)
	}
	cfg, err := tune.PlanetConfig()
	if err != nil {
		return nil, 0, err
	}
	ai, err := planet.New(cfg, planetstate.New(cfg.PlanetID), engine.NewForge())
	if err != nil {
		return nil, 0, err
	}
	return ai, 0, nil
}
