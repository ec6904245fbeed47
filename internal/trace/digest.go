package trace

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainTrace is the domain prefix of trace digests. The version suffix
// allows the encoding to change without colliding with old digests.
const DomainTrace = "reactorrt/trace/v1"

// Digest computes the SHA-256 digest of a trace.
// Format: SHA256(domain + 0x00 + event_0 + 0x0a + event_1 + 0x0a ...), where
// each event is its canonical JSON.
func Digest(events []Event) (string, error) {
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})
	for _, e := range events {
		b, err := CanonicalEvent(e)
		if err != nil {
			return "", err
		}
		h.Write(b)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
