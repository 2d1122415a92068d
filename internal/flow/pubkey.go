package flow

import "encoding/hex"

// validPubkey reports whether s is a hex-encoded 33-byte compressed
// secp256k1 public key, the format node identities use on the wire.
func validPubkey(s string) bool {
	if len(s) != 66 {
		return false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return false
	}
	return raw[0] == 0x02 || raw[0] == 0x03
}
