package layout

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies a raw layout record by its BLAKE2b-256 digest.
func Fingerprint(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// KeyedFingerprint is Fingerprint under a BLAKE2b key. The same record
// processed under different settings gets a different value, so archives
// keyed on it never mix results. settings is hashed down to a 32-byte key.
func KeyedFingerprint(raw []byte, settings string) string {
	key := blake2b.Sum256([]byte(settings))
	h, err := blake2b.New256(key[:])
	if err != nil {
		// Unreachable: the key is always 32 bytes.
		panic(err)
	}
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}
