package types

import (
	"crypto/sha256"
	"encoding/json"
	"time"
)

// Fingerprint computes a SHA-256 hash over the content fields of the record.
// Derived fields (CalledBy, DependencyDepth, ModifiedAt) are excluded so that a
// call-graph rebuild or a touch of the file does not count as a content change.
func (r *Record) Fingerprint() [32]byte {
	c := r.Clone()
	c.Metadata.CalledBy = nil
	c.Metadata.DependencyDepth = nil
	c.ModifiedAt = time.Time{}

	// encoding/json sorts map keys, so the output is deterministic
	data, err := json.Marshal(c)
	if err != nil {
		// Extensions holding unmarshalable values; fall back to the identity
		// and signature only
		return sha256.Sum256([]byte(r.Key() + "\x00" + r.Signature + "\x00" + r.Body))
	}
	return sha256.Sum256(data)
}
