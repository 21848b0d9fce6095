package main

import (
	"errors"
	"fmt"
	"path/filepath"

	persistlog "airfryer.ai/internal/persistence/log"
	"airfryer.ai/internal/sim/planet"
)

type result struct {
	Checked    uint64
	LastSeq    uint64
	Asteroids  uint64
	Undefended uint64
	Truncated  int
}

var errReachedEnd = errors.New("reached -to_seq")

// replay re-applies every entry after startSeq and compares digests. Entries
// must be contiguous.
func replay(ai *planet.AI, startSeq, toSeq uint64, files []string) (result, error) {
	res := result{LastSeq: startSeq}
	for _, path := range files {
		err := persistlog.ReadJournal(path, func(e planet.JournalEntry) error {
			if e.Seq <= startSeq {
				return nil
			}
			if toSeq != 0 && e.Seq > toSeq {
				return errReachedEnd
			}
			if e.Seq != res.LastSeq+1 {
				return fmt.Errorf("seq gap: want=%d got=%d (file=%s)", res.LastSeq+1, e.Seq, filepath.Base(path))
			}
			got, err := ai.Apply(e)
			if err != nil {
				return fmt.Errorf("seq %d: %w", e.Seq, err)
			}
			if got != e.Digest {
				return fmt.Errorf("digest mismatch at seq %d (%s): got=%s want=%s", e.Seq, e.Message.Kind, got, e.Digest)
			}
			res.Checked++
			res.LastSeq = e.Seq
			switch e.Outcome {
			case planet.OutcomeDefended:
				res.Asteroids++
			case planet.OutcomeUndefended:
				res.Asteroids++
				res.Undefended++
			}
			return nil
		})
		if errors.Is(err, errReachedEnd) {
			return res, nil
		}
		if errors.Is(err, persistlog.ErrTruncated) {
			// A crashed writer; a lost entry shows up as a seq gap in the next segment.
			res.Truncated++
			continue
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
