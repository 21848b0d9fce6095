package planet

// WarningSignal is the one-shot bit shared by the asteroid handler (producer)
// and the combination query (consumer).
//
// Raise: an asteroid went unanswered.
// Clear: a later asteroid was answered with a rocket.
// Consume: the combination query observed it; reading resets it.
type WarningSignal struct {
	pending bool
}

func (s *WarningSignal) Raise() { s.pending = true }

func (s *WarningSignal) Clear() { s.pending = false }

// Consume returns the pending state and resets it.
func (s *WarningSignal) Consume() bool {
	p := s.pending
	s.pending = false
	return p
}

func (s *WarningSignal) Pending() bool { return s.pending }
