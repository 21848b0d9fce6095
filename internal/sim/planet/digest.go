package planet

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Digest hashes the session flags and the physical state. Resource and rocket
// ids are excluded so a replay with fresh ids reproduces the same digests.
func (a *AI) Digest() string {
	h := sha256.New()
	writeBool(h, a.started)
	writeBool(h, a.hasExplorer)
	writeString(h, a.explorerID)
	writeBool(h, a.warning.Pending())
	writeBool(h, a.stoppedNoticeSent)
	writeBool(h, a.killed)
	writeBool(h, a.state.Cell().IsCharged())
	writeBool(h, a.state.HasRocket())
	return hex.EncodeToString(h.Sum(nil))
}

func writeBool(h hash.Hash, b bool) {
	if b {
		h.Write([]byte{1})
		return
	}
	h.Write([]byte{0})
}

func writeString(h hash.Hash, s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
