package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"airfryer.ai/internal/sim/planet"
)

// ErrTruncated reports a segment whose writer stopped mid-frame. Every entry
// before the cut has already been delivered.
var ErrTruncated = errors.New("journal segment truncated")

// JournalFiles lists the journal segments under planetDir/events in write
// order. Names sort by hour, then by first seq.
func JournalFiles(planetDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(planetDir, "events", "events-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadJournal streams every entry in path to fn, stopping at the first error.
func ReadJournal(path string, fn func(planet.JournalEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e planet.JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrTruncated)
		}
		return err
	}
	return nil
}
