package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"airfryer.ai/internal/sim/planet"
)

// JournalLogger writes one JSON line per handled planet message into zstd
// segments under planetDir/events. Every entry is flushed as its own zstd
// block, so a crashed process loses at most the entry it was writing.
//
// A segment is named after the hour and the first seq it holds and is never
// reopened: a restart always starts a fresh segment instead of appending to a
// frame that may have been cut short.
type JournalLogger struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	line    []byte
}

func NewJournalLogger(planetDir string) *JournalLogger {
	return &JournalLogger{
		dir: filepath.Join(planetDir, "events"),
		now: time.Now,
	}
}

func (l *JournalLogger) WriteEntry(e planet.JournalEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	hour := l.now().UTC().Format("2006-01-02-15")
	if hour != l.curHour {
		if err := l.rotateLocked(hour, e.Seq); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	l.line = append(append(l.line[:0], b...), '\n')
	if _, err := l.enc.Write(l.line); err != nil {
		return err
	}
	return l.enc.Flush()
}

func (l *JournalLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *JournalLogger) rotateLocked(hour string, firstSeq uint64) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := createSegment(l.dir, hour, firstSeq)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.curHour = hour
	return nil
}

func (l *JournalLogger) closeLocked() error {
	var err error
	if l.enc != nil {
		err = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		if cerr := l.f.Close(); err == nil {
			err = cerr
		}
		l.f = nil
	}
	l.curHour = ""
	return err
}

// createSegment picks the first free name for the segment. A planet resumed
// twice from the same snapshot within an hour reuses a seq; "~n" sorts after
// the plain name.
func createSegment(dir, hour string, firstSeq uint64) (*os.File, error) {
	base := fmt.Sprintf("events-%s-%012d", hour, firstSeq)
	for n := 0; n < 100; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s~%02d", base, n)
		}
		f, err := os.OpenFile(filepath.Join(dir, name+".jsonl.zst"), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return f, err
	}
	return nil, fmt.Errorf("journal: no free segment name for %s", base)
}
